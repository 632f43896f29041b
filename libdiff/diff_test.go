package libdiff

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jettison/panopticon/decode"
	"github.com/jettison/panopticon/fieldfmt"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/kpath"
	"github.com/jettison/panopticon/schema"
)

func testDecoder(t *testing.T) *decode.Decoder {
	t.Helper()
	reg, err := schema.LoadFile("../schema/testdata/jon_gui_state.yaml")
	if err != nil {
		t.Fatal(err)
	}
	f, err := fieldfmt.FromRegistry(reg)
	if err != nil {
		t.Fatal(err)
	}
	return decode.New(reg, f)
}

func compassSnapshot(azimuth, units int) map[string]any {
	return map[string]any{
		"compass": map[string]any{
			"azimuth":          azimuth,
			"elevation":        0,
			"bank":             0,
			"units_idx":        units,
			"units_idx_packed": units,
		},
	}
}

// randomSnapshot fills a random subset of the test schema with random
// in-range values.
func randomSnapshot(r *rand.Rand) map[string]any {
	maybe := func(m map[string]any, k string, v any) {
		if r.Intn(5) != 0 {
			m[k] = v
		}
	}
	compass := map[string]any{}
	maybe(compass, "azimuth", r.Intn(6400))
	maybe(compass, "elevation", r.Intn(1600)-800)
	maybe(compass, "units_idx", r.Intn(6))
	maybe(compass, "units_idx_packed", r.Intn(6))
	var modules []any
	n := r.Intn(9)
	for i := 0; i < n; i++ {
		m := map[string]any{}
		maybe(m, "voltage", r.Intn(30000))
		maybe(m, "enabled", r.Intn(2) == 0)
		maybe(m, "can_address", r.Intn(0x800))
		modules = append(modules, m)
	}
	snap := map[string]any{"compass": compass, "power": map[string]any{"modules": modules}}
	lrf := map[string]any{"is_scanning": r.Intn(2) == 0}
	if r.Intn(2) == 0 {
		lrf["target"] = map[string]any{"measurement": map[string]any{"distance": r.Intn(100000), "status": r.Intn(5)}}
	}
	maybe(snap, "lrf", lrf)
	maybe(snap, "time", map[string]any{"timestamp_lo": r.Uint32(), "timestamp_hi": r.Intn(2)})
	return snap
}

func decodeTree(t *testing.T, d *decode.Decoder, obj any) *ir.Node {
	t.Helper()
	root, err := d.Decode(obj, nil)
	if decode.IsFatal(err) {
		t.Fatal(err)
	}
	return root
}

func TestRebuild(t *testing.T) {
	d := testDecoder(t)
	root := decodeTree(t, d, compassSnapshot(1600, 2))
	patches := Rebuild(root)
	n := 0
	_ = root.Walk(func(*ir.Node) error { n++; return nil })
	if len(patches) != n {
		t.Fatalf("got %d build patches for %d nodes", len(patches), n)
	}
	if patches[0].Path != nil || patches[0].Node != root {
		t.Errorf("first patch should build the root, got %s", &patches[0])
	}
	for _, p := range patches {
		if p.Op != Build {
			t.Fatalf("non build patch %s", &p)
		}
		if p.Path.String() == "compass.azimuth" && p.Display != "90.00" {
			t.Errorf("azimuth build display: %q", p.Display)
		}
	}
}

func TestDiffScenario(t *testing.T) {
	d := testDecoder(t)
	first := decodeTree(t, d, compassSnapshot(1600, 2))
	if got := mustGet(t, first, "compass.azimuth").Display; got != "90.00" {
		t.Fatalf("azimuth: got %q", got)
	}
	if got := mustGet(t, first, "compass.status").Display; got != "Mils" {
		t.Fatalf("status: got %q", got)
	}
	second := decodeTree(t, d, compassSnapshot(1600, 3))
	patches, err := Diff(first, second)
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 1 {
		t.Fatalf("got %d patches: %v", len(patches), patches)
	}
	p := patches[0]
	if p.Op != SetValue || p.Path.String() != "compass.status" || p.Display != "Grad" || p.Raw.String() != "3" {
		t.Errorf("got %s raw %s", &p, p.Raw)
	}
}

func TestDiffIdempotent(t *testing.T) {
	d := testDecoder(t)
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		snap := randomSnapshot(r)
		a := decodeTree(t, d, snap)
		b := decodeTree(t, d, snap)
		patches, err := Diff(a, b)
		if err != nil {
			t.Fatal(err)
		}
		if len(patches) != 0 {
			t.Fatalf("unchanged snapshot gave patches %v", patches)
		}
	}
}

func TestDiffIgnoresFormattingJitter(t *testing.T) {
	d := testDecoder(t)
	mod := func(mv int) map[string]any {
		return map[string]any{"power": map[string]any{"modules": []any{map[string]any{"voltage": mv}}}}
	}
	patches, err := Diff(decodeTree(t, d, mod(24000)), decodeTree(t, d, mod(24001)))
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 0 {
		t.Errorf("jitter below display precision gave patches %v", patches)
	}
}

func TestShapeStability(t *testing.T) {
	d := testDecoder(t)
	r := rand.New(rand.NewSource(42))
	prev := decodeTree(t, d, map[string]any{})
	tree, err := Apply(nil, Rebuild(prev))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 200; i++ {
		next := decodeTree(t, d, randomSnapshot(r))
		patches, err := Diff(prev, next)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range patches {
			n, err := next.Get(p.Path)
			if err != nil {
				t.Fatalf("snapshot %d: patch %s: %v", i, &p, err)
			}
			switch {
			case p.Op == SetState && n.IsLeaf():
				t.Fatalf("snapshot %d: state patch %s on a leaf", i, &p)
			case p.Op == Build && (p.Path == nil || !n.IsLeaf()):
				t.Fatalf("snapshot %d: structural patch %s", i, &p)
			case p.Op == SetValue && !n.IsLeaf():
				t.Fatalf("snapshot %d: patch %s does not address a leaf", i, &p)
			}
		}
		tree, err = Apply(tree, patches)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(flatten(next), flatten(tree)); diff != "" {
			t.Fatalf("snapshot %d: patched tree differs (-want +got):\n%s", i, diff)
		}
		prev = next
	}
}

type nodeState struct {
	Path         string
	Display      string
	Missing      bool
	ViewMissing  bool
	Unrecognized bool
	Variant      string
	ViewField    string
}

// flatten lists what a display shows of every node of root.
func flatten(root *ir.Node) []nodeState {
	var res []nodeState
	_ = root.Walk(func(n *ir.Node) error {
		st := nodeState{
			Path:         n.Path().String(),
			Display:      n.Display,
			Missing:      n.Missing,
			ViewMissing:  n.View().Missing,
			Unrecognized: n.Unrecognized,
			Variant:      n.Variant,
		}
		if n.Type == ir.UnionType {
			st.ViewField = n.Values[0].ParentField
		}
		res = append(res, st)
		return nil
	})
	return res
}

func TestDiffContainerState(t *testing.T) {
	d := testDecoder(t)
	target := map[string]any{"measurement": map[string]any{"distance": 1500, "status": 1}}
	snaps := []map[string]any{
		{},
		{
			"header": map[string]any{"protocol_version": 3, "system_status": 1},
			"power":  map[string]any{"modules": []any{map[string]any{"voltage": 12000}}},
			"lrf":    map[string]any{"is_scanning": true, "target": target},
		},
		{"lrf": map[string]any{"is_scanning": true}},
	}
	wants := [][]string{
		nil,
		{
			"state header present",
			`set header.protocol_version = "3"`,
			`set header.system_status = "Ok"`,
			"state power present",
			"state power.modules present",
			"state power.modules[0] present",
			`set power.modules[0].voltage = "12.00 V"`,
			"state lrf present",
			`set lrf.is_scanning = "true"`,
			"state lrf.target present",
			`set lrf.target.distance = "1.500"`,
			`set lrf.target.status = "Ok"`,
		},
	}
	prev := decodeTree(t, d, snaps[0])
	tree, err := Apply(nil, Rebuild(prev))
	if err != nil {
		t.Fatal(err)
	}
	for i, snap := range snaps[1:] {
		next := decodeTree(t, d, snap)
		patches, err := Diff(prev, next)
		if err != nil {
			t.Fatal(err)
		}
		if i+1 < len(wants) {
			var got []string
			for _, p := range patches {
				got = append(got, p.String())
			}
			if diff := cmp.Diff(wants[i+1], got); diff != "" {
				t.Errorf("snapshot %d patches (-want +got):\n%s", i+1, diff)
			}
		}
		if tree, err = Apply(tree, patches); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(flatten(next), flatten(tree)); diff != "" {
			t.Errorf("snapshot %d: patched tree differs (-want +got):\n%s", i+1, diff)
		}
		prev = next
	}
	tg := mustGet(t, tree, "lrf.target")
	if !tg.Missing || tg.Variant != "" || !tg.View().Missing {
		t.Errorf("target after going missing: missing %v variant %q", tg.Missing, tg.Variant)
	}
}

func TestDiffVariantSwitch(t *testing.T) {
	d := testDecoder(t)
	first := decodeTree(t, d, compassSnapshot(1600, 2))
	tree, err := Apply(nil, Rebuild(first))
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		units   int
		variant string
		display string
	}{
		{9, "units_idx_packed", "9 (unrecognized)"},
		{9, "units_idx_packed", "9 (unrecognized)"},
		{3, "units_idx", "Grad"},
	} {
		next := decodeTree(t, d, compassSnapshot(1600, tc.units))
		patches, err := Diff(first, next)
		if err != nil {
			t.Fatal(err)
		}
		if tree, err = Apply(tree, patches); err != nil {
			t.Fatal(err)
		}
		st := mustGet(t, tree, "compass.status")
		if st.Variant != tc.variant || st.Display != tc.display || st.Values[0].Schema != next.Field("compass").Field("status").Values[0].Schema {
			t.Errorf("units %d: variant %q display %q", tc.units, st.Variant, st.Display)
		}
		first = next
	}
}

func TestDiffShapeMismatch(t *testing.T) {
	d := testDecoder(t)
	other, err := schema.Load([]byte(`
root: s
types:
  s: {kind: struct, fields: [{name: compass, type: uint8}]}
`))
	if err != nil {
		t.Fatal(err)
	}
	od := decode.New(other, fieldfmt.New())
	a := decodeTree(t, d, compassSnapshot(1, 1))
	b, err := od.Decode(map[string]any{"compass": 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Diff(a, b); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}

func TestApply(t *testing.T) {
	d := testDecoder(t)
	first := decodeTree(t, d, compassSnapshot(1600, 2))
	tree, err := Apply(nil, Rebuild(first))
	if err != nil {
		t.Fatal(err)
	}
	if tree == first {
		t.Fatal("Apply must copy built trees")
	}
	second := decodeTree(t, d, compassSnapshot(3200, 3))
	patches, err := Diff(first, second)
	if err != nil {
		t.Fatal(err)
	}
	if tree, err = Apply(tree, patches); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, tree, "compass.azimuth").Display; got != "180.00" {
		t.Errorf("azimuth: got %q", got)
	}
	if got := mustGet(t, first, "compass.azimuth").Display; got != "90.00" {
		t.Errorf("Apply modified the built-from tree: %q", got)
	}
	st := mustGet(t, tree, "compass.status")
	if st.Display != "Grad" || st.Values[0].Display != "Grad" {
		t.Errorf("status: got %q / %q", st.Display, st.Values[0].Display)
	}

	sub, err := first.Get(kpath.MustParse("compass"))
	if err != nil {
		t.Fatal(err)
	}
	if tree, err = Apply(tree, []Patch{{Op: Build, Path: sub.Path(), Node: sub}}); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, tree, "compass.azimuth").Display; got != "90.00" {
		t.Errorf("subtree build: azimuth %q", got)
	}
	if mustGet(t, tree, "compass").Parent != tree {
		t.Error("subtree build did not link parent")
	}
}

func TestApplyErrors(t *testing.T) {
	d := testDecoder(t)
	set := Patch{Op: SetValue, Path: kpath.MustParse("compass.azimuth"), Display: "x"}
	if _, err := Apply(nil, []Patch{set}); !errors.Is(err, ErrNoTree) {
		t.Errorf("set on no tree: got %v", err)
	}
	tree, err := Apply(nil, Rebuild(decodeTree(t, d, compassSnapshot(0, 0))))
	if err != nil {
		t.Fatal(err)
	}
	bad := Patch{Op: SetValue, Path: kpath.MustParse("compass.heading"), Display: "x"}
	if _, err := Apply(tree, []Patch{bad}); !errors.Is(err, ir.ErrNoPath) {
		t.Errorf("unknown path: got %v", err)
	}
	composite := Patch{Op: SetValue, Path: kpath.MustParse("compass"), Display: "x"}
	if _, err := Apply(tree, []Patch{composite}); !errors.Is(err, ErrShape) {
		t.Errorf("set on composite: got %v", err)
	}
}

func TestDiffString(t *testing.T) {
	got := DiffString("12345.67", "12346.67")
	want := []Span{
		{Op: SpanEqual, Text: "1234"},
		{Op: SpanDelete, Text: "5"},
		{Op: SpanInsert, Text: "6"},
		{Op: SpanEqual, Text: ".67"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	got = DiffString("Mils", "Degrees")
	want = []Span{{Op: SpanDelete, Text: "Mils"}, {Op: SpanInsert, Text: "Degrees"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func mustGet(t *testing.T, root *ir.Node, p string) *ir.Node {
	t.Helper()
	n, err := root.Get(kpath.MustParse(p))
	if err != nil {
		t.Fatal(err)
	}
	return n
}
