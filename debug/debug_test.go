package debug

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	defer load(func(string) string { return "" })
	tests := []struct {
		env  map[string]string
		want []bool
	}{
		{nil, []bool{false, false, false, false}},
		{map[string]string{"PANOPTICON_DEBUG": "diff, Pipeline"}, []bool{false, false, true, true}},
		{map[string]string{"PANOPTICON_DEBUG": "all"}, []bool{true, true, true, true}},
		{map[string]string{"PANOPTICON_DEBUG_DECODE": "1", "PANOPTICON_DEBUG_FORMAT": "no"}, []bool{true, false, false, false}},
	}
	for _, tc := range tests {
		load(func(k string) string { return tc.env[k] })
		got := []bool{Decode(), Format(), Diff(), Pipeline()}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%v (-want +got):\n%s", tc.env, diff)
		}
	}
}

type tree struct{}

func (tree) ToAny() any { return map[string]any{"a": "1"} }

func TestLogf(t *testing.T) {
	buf := &bytes.Buffer{}
	defer SetOutput(SetOutput(buf))
	prev := Set(DiffTopic, true)
	defer Set(DiffTopic, prev)
	if !Diff() {
		t.Fatal("Set did not enable the topic")
	}
	Logf("%s %d %v\n", "x", 3, tree{})
	want := "x 3 {\n   |  \"a\": \"1\"\n   |}\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
