// Package debug holds developer toggles read from the environment.
//
// Each topic is enabled by its own variable, PANOPTICON_DEBUG_<TOPIC>=1, or
// by listing it in PANOPTICON_DEBUG ("decode,diff", or "all").
package debug

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

type Topic int

const (
	DecodeTopic Topic = iota
	FormatTopic
	DiffTopic
	PipelineTopic
	numTopics
)

var topicNames = [numTopics]string{
	DecodeTopic:   "decode",
	FormatTopic:   "format",
	DiffTopic:     "diff",
	PipelineTopic: "pipeline",
}

func (t Topic) String() string {
	if t < 0 || t >= numTopics {
		return "topic" + strconv.Itoa(int(t))
	}
	return topicNames[t]
}

var enabled [numTopics]atomic.Bool

func init() {
	load(os.Getenv)
}

// load sets every topic from getenv.
func load(getenv func(string) string) {
	list := map[string]bool{}
	for _, f := range strings.Split(getenv("PANOPTICON_DEBUG"), ",") {
		list[strings.ToLower(strings.TrimSpace(f))] = true
	}
	for t := Topic(0); t < numTopics; t++ {
		name := t.String()
		on := list["all"] || list[name] || boolEnv(getenv("PANOPTICON_DEBUG_"+strings.ToUpper(name)))
		enabled[t].Store(on)
	}
}

func boolEnv(x string) bool {
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

// Set turns t on or off and returns its previous state.
func Set(t Topic, on bool) bool {
	return enabled[t].Swap(on)
}

func Enabled(t Topic) bool {
	return enabled[t].Load()
}

func Decode() bool   { return Enabled(DecodeTopic) }
func Format() bool   { return Enabled(FormatTopic) }
func Diff() bool     { return Enabled(DiffTopic) }
func Pipeline() bool { return Enabled(PipelineTopic) }
