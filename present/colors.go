package present

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type ColorAttr int

const (
	PathColor ColorAttr = iota
	ValueColor
	RawColor
	MissingColor
	UnrecognizedColor
	InsertColor
	DeleteColor
	HeaderColor
)

// Colors maps attributes to printf-like functions.  Attributes without an
// entry are printed with Default.
type Colors struct {
	Default func(string, ...any) string
	Map     map[ColorAttr]func(string, ...any) string
}

func NewColors() *Colors {
	c := &Colors{
		Default: fmt.Sprintf,
		Map:     map[ColorAttr]func(string, ...any) string{},
	}
	c.Map[PathColor] = color.RGB(128, 216, 236).SprintfFunc()
	c.Map[ValueColor] = color.RGB(198, 198, 46).SprintfFunc()
	c.Map[RawColor] = color.RGB(96, 96, 96).SprintfFunc()
	c.Map[MissingColor] = color.RGB(196, 128, 128).SprintfFunc()
	c.Map[UnrecognizedColor] = color.RGB(255, 0, 196).SprintfFunc()
	c.Map[InsertColor] = color.New(color.FgBlack, color.BgGreen).SprintfFunc()
	c.Map[DeleteColor] = color.New(color.FgBlack, color.BgRed, color.CrossedOut).SprintfFunc()
	c.Map[HeaderColor] = color.RGB(74, 92, 138).SprintfFunc()
	return c
}

// NoColors returns colors printing everything plainly.
func NoColors() *Colors {
	return &Colors{Default: fmt.Sprintf}
}

func (c *Colors) Color(attr ColorAttr) func(string, ...any) string {
	if c == nil {
		return fmt.Sprintf
	}
	if f, ok := c.Map[attr]; ok {
		return f
	}
	return c.Default
}

// IsTerminal reports whether f is a terminal and so should get colors.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
