package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jettison/panopticon/decode"
	"github.com/jettison/panopticon/fieldfmt"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/kpath"
	"github.com/jettison/panopticon/libdiff"
	"github.com/jettison/panopticon/schema"
	"github.com/jettison/panopticon/snapshot"
)

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	reg, err := schema.LoadFile("../schema/testdata/jon_gui_state.yaml")
	if err != nil {
		t.Fatal(err)
	}
	e, err := New(reg, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func compass(seq uint64, azimuth, units any) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Seq:  seq,
		Time: time.Unix(int64(seq), 0),
		State: map[string]any{
			"compass": map[string]any{
				"azimuth":          azimuth,
				"elevation":        0,
				"bank":             0,
				"units_idx":        units,
				"units_idx_packed": units,
			},
		},
	}
}

func display(t *testing.T, e *Engine, p string) string {
	t.Helper()
	n, err := e.Tree().Get(kpath.MustParse(p))
	if err != nil {
		t.Fatal(err)
	}
	return n.Display
}

func TestScenario(t *testing.T) {
	e := testEngine(t)
	if e.State() != Uninitialized || e.Tree() != nil {
		t.Fatalf("new engine: state %s tree %v", e.State(), e.Tree())
	}
	b, err := e.Process(compass(1, 1600, 2))
	if err != nil {
		t.Fatal(err)
	}
	if !b.Rebuild || e.State() != Synchronized {
		t.Fatalf("first batch: rebuild=%v state=%s", b.Rebuild, e.State())
	}
	for _, p := range b.Patches {
		if p.Op != libdiff.Build {
			t.Fatalf("first batch has %s", &p)
		}
	}
	if got := display(t, e, "compass.azimuth"); got != "90.00" {
		t.Errorf("azimuth: got %q", got)
	}
	if got := display(t, e, "compass.status"); got != "Mils" {
		t.Errorf("status: got %q", got)
	}

	b, err = e.Process(compass(2, 1600, 3))
	if err != nil {
		t.Fatal(err)
	}
	if b.Rebuild || len(b.Patches) != 1 {
		t.Fatalf("second batch: rebuild=%v patches=%v", b.Rebuild, b.Patches)
	}
	p := b.Patches[0]
	if p.Op != libdiff.SetValue || p.Path.String() != "compass.status" || p.Display != "Grad" {
		t.Errorf("got %s", &p)
	}
	if got := display(t, e, "compass.status"); got != "Grad" {
		t.Errorf("tree not patched: %q", got)
	}
	if b.Seq != 2 || !b.Time.Equal(time.Unix(2, 0)) {
		t.Errorf("batch seq %d time %s", b.Seq, b.Time)
	}
}

func TestIdempotent(t *testing.T) {
	e := testEngine(t)
	if _, err := e.Process(compass(1, 1600, 2)); err != nil {
		t.Fatal(err)
	}
	for seq := uint64(2); seq < 5; seq++ {
		b, err := e.Process(compass(seq, 1600, 2))
		if err != nil {
			t.Fatal(err)
		}
		if b.Rebuild || len(b.Patches) != 0 {
			t.Errorf("seq %d: unchanged snapshot gave %v", seq, b.Patches)
		}
	}
}

func TestStale(t *testing.T) {
	e := testEngine(t)
	if _, err := e.Process(compass(5, 1600, 2)); err != nil {
		t.Fatal(err)
	}
	before := e.Tree().ToAny()
	for _, seq := range []uint64{5, 4} {
		if _, err := e.Process(compass(seq, 3200, 3)); !errors.Is(err, ErrStale) {
			t.Errorf("seq %d: expected ErrStale, got %v", seq, err)
		}
	}
	if diff := cmp.Diff(before, e.Tree().ToAny()); diff != "" {
		t.Errorf("stale snapshot changed the tree:\n%s", diff)
	}
	if e.Seq() != 5 {
		t.Errorf("seq: got %d", e.Seq())
	}
}

func TestFatalKeepsLastGood(t *testing.T) {
	e := testEngine(t)
	if _, err := e.Process(compass(1, 1600, 2)); err != nil {
		t.Fatal(err)
	}
	_, err := e.Process(compass(2, "north", 2))
	if !decode.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	de := &decode.DecodeError{}
	if !errors.As(err, &de) || de.Kind != decode.TypeMismatch {
		t.Errorf("expected type mismatch, got %v", err)
	}
	if e.State() != Uninitialized {
		t.Errorf("state after fatal: %s", e.State())
	}
	if got := display(t, e, "compass.azimuth"); got != "90.00" {
		t.Errorf("last good tree lost: %q", got)
	}
	b, err := e.Process(compass(3, 3200, 2))
	if err != nil {
		t.Fatal(err)
	}
	if !b.Rebuild {
		t.Error("snapshot after fatal error must rebuild")
	}
	if got := display(t, e, "compass.azimuth"); got != "180.00" {
		t.Errorf("azimuth after rebuild: %q", got)
	}
}

func TestPartial(t *testing.T) {
	e := testEngine(t)
	s := compass(1, 1600, 2)
	delete(s.State.(map[string]any)["compass"].(map[string]any), "bank")
	b, err := e.Process(s)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"header", "compass.bank", "gps", "time", "power", "lrf"}, b.Missing); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}
	if got := display(t, e, "compass.bank"); got != ir.MissingDisplay {
		t.Errorf("bank: got %q", got)
	}
	s = compass(2, 1600, 2)
	s.State.(map[string]any)["compass"].(map[string]any)["bank"] = 100
	b, err = e.Process(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Patches) != 1 || b.Patches[0].Display != "1.00" || b.Patches[0].Missing {
		t.Errorf("bank returns: got %v", b.Patches)
	}
}

func TestReset(t *testing.T) {
	var calls int
	e := testEngine(t, WithRules(func(f *fieldfmt.Formatter) {
		calls++
		f.RegisterPath(kpath.MustParse("compass.azimuth"), fieldfmt.Identity{})
	}))
	if _, err := e.Process(compass(1, 1600, 2)); err != nil {
		t.Fatal(err)
	}
	if got := display(t, e, "compass.azimuth"); got != "1600" {
		t.Errorf("path rule not applied: %q", got)
	}
	if err := e.Reset(e.Registry()); err != nil {
		t.Fatal(err)
	}
	if e.State() != Uninitialized || calls != 2 {
		t.Errorf("after reset: state %s rule calls %d", e.State(), calls)
	}
	b, err := e.Process(compass(2, 1600, 2))
	if err != nil {
		t.Fatal(err)
	}
	if !b.Rebuild {
		t.Error("snapshot after reset must rebuild")
	}
}

func TestContainerState(t *testing.T) {
	e := testEngine(t)
	header := map[string]any{"protocol_version": 3, "system_status": 1}
	target := map[string]any{"measurement": map[string]any{"distance": 1500, "status": 2}}
	tests := []struct {
		state   map[string]any
		missing bool
		variant string
	}{
		{map[string]any{}, true, ""},
		{map[string]any{"header": header, "lrf": map[string]any{"is_scanning": true, "target": target}}, false, "measurement"},
		{map[string]any{"lrf": map[string]any{"is_scanning": true}}, true, ""},
		{map[string]any{"header": header, "lrf": map[string]any{"is_scanning": true, "target": target}}, false, "measurement"},
	}
	for i, tc := range tests {
		b, err := e.Process(&snapshot.Snapshot{Seq: uint64(i + 1), State: tc.state})
		if err != nil {
			t.Fatal(err)
		}
		if i > 0 && b.Rebuild {
			t.Fatalf("snapshot %d rebuilt the tree", i+1)
		}
		for _, p := range []string{"header", "lrf.target"} {
			n, err := e.Tree().Get(kpath.MustParse(p))
			if err != nil {
				t.Fatal(err)
			}
			if n.Missing != tc.missing || n.View().Missing != tc.missing {
				t.Errorf("snapshot %d: %s missing %v", i+1, p, n.Missing)
			}
		}
		tg, _ := e.Tree().Get(kpath.MustParse("lrf.target"))
		if tg.Variant != tc.variant {
			t.Errorf("snapshot %d: target variant %q", i+1, tg.Variant)
		}
		if !tc.missing {
			if got := display(t, e, "lrf.target.status"); got != "Degraded" {
				t.Errorf("snapshot %d: target status %q", i+1, got)
			}
		}
	}
}

func TestVariantSwitch(t *testing.T) {
	e := testEngine(t)
	for i, tc := range []struct {
		units   int
		variant string
		display string
		op      libdiff.Op
	}{
		{2, "units_idx", "Mils", libdiff.Build},
		{7, "units_idx_packed", "7 (unrecognized)", libdiff.Build},
		{3, "units_idx", "Grad", libdiff.Build},
		{2, "units_idx", "Mils", libdiff.SetValue},
	} {
		b, err := e.Process(compass(uint64(i+1), 1600, tc.units))
		if err != nil {
			t.Fatal(err)
		}
		st, err := e.Tree().Get(kpath.MustParse("compass.status"))
		if err != nil {
			t.Fatal(err)
		}
		if st.Variant != tc.variant || st.Display != tc.display || st.Unrecognized != (tc.units > 4) {
			t.Errorf("units %d: variant %q display %q unrecognized %v", tc.units, st.Variant, st.Display, st.Unrecognized)
		}
		if i == 0 {
			continue
		}
		if len(b.Patches) != 1 || b.Patches[0].Op != tc.op {
			t.Errorf("units %d: patches %v", tc.units, b.Patches)
		}
	}
}
