package decode

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jettison/panopticon/fieldfmt"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/kpath"
	"github.com/jettison/panopticon/schema"
)

func testDecoder(t *testing.T) *Decoder {
	t.Helper()
	reg, err := schema.LoadFile("../schema/testdata/jon_gui_state.yaml")
	if err != nil {
		t.Fatal(err)
	}
	f, err := fieldfmt.FromRegistry(reg)
	if err != nil {
		t.Fatal(err)
	}
	return New(reg, f)
}

func module(i int) map[string]any {
	return map[string]any{
		"voltage":     24000 + i,
		"current":     -1500,
		"temperature": 235,
		"can_address": 0x100 + i,
		"enabled":     i%2 == 0,
	}
}

// fullSnapshot returns a snapshot carrying every field of the test schema.
func fullSnapshot() map[string]any {
	modules := make([]any, 8)
	for i := range modules {
		modules[i] = module(i)
	}
	lo, hi := SplitHalves(1700000000)
	return map[string]any{
		"header": map[string]any{"protocol_version": 3, "system_status": 1},
		"compass": map[string]any{
			"azimuth":          1600,
			"elevation":        -800,
			"bank":             12345,
			"units_idx":        2,
			"units_idx_packed": 2,
		},
		"gps": map[string]any{
			"latitude":  48123456,
			"longitude": 35012345,
			"altitude":  152000,
			"fix_type":  3,
		},
		"time": map[string]any{
			"timestamp_lo":     lo,
			"timestamp_hi":     hi,
			"manual_timestamp": int64(1600000000),
		},
		"power": map[string]any{"modules": modules},
		"lrf": map[string]any{
			"is_scanning": false,
			"target": map[string]any{
				"measurement":        map[string]any{"distance": 1234567, "status": 1},
				"measurement_packed": uint64(0xdeadbeef),
			},
		},
	}
}

func get(t *testing.T, root *ir.Node, p string) *ir.Node {
	t.Helper()
	n, err := root.Get(kpath.MustParse(p))
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDecodeFull(t *testing.T) {
	d := testDecoder(t)
	root, err := d.Decode(fullSnapshot(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"header.system_status":         "Ok",
		"compass.azimuth":              "90.00",
		"compass.elevation":            "-45.00",
		"compass.bank":                 "123.45",
		"compass.status":               "Mils",
		"gps.latitude":                 "48.123456",
		"gps.fix_type":                 "3D",
		"time.timestamp":               "2023-11-14 22:13:20",
		"time.manual_timestamp":        "2020-09-13 12:26:40",
		"power.modules[3].voltage":     "24.00 V",
		"power.modules[3].current":     "-1.500",
		"power.modules[3].temperature": "23.5 C",
		"power.modules[3].can_address": "0x103",
		"power.modules[3].enabled":     "OFF",
		"power.modules[4].enabled":     "ON",
		"lrf.is_scanning":              "false",
		"lrf.target.distance":          "1234.567",
		"lrf.target.status":            "Ok",
		"header.protocol_version":      "3",
		"power.modules[7].can_address": "0x107",
		"power.modules[0].temperature": "23.5 C",
		"gps.altitude":                 "152.000",
		"gps.longitude":                "35.012345",
		"power.modules[7].voltage":     "24.01 V",
		"power.modules[1].enabled":     "OFF",
		"power.modules[2].enabled":     "ON",
		"power.modules[5].can_address": "0x105",
		"power.modules[6].current":     "-1.500",
		"power.modules[0].can_address": "0x100",
		"power.modules[0].voltage":     "24.00 V",
		"power.modules[0].enabled":     "ON",
		"power.modules[0].current":     "-1.500",
		"power.modules[1].can_address": "0x101",
		"power.modules[2].can_address": "0x102",
		"power.modules[4].can_address": "0x104",
		"power.modules[6].can_address": "0x106",
	}
	for p, w := range want {
		if got := get(t, root, p).Display; got != w {
			t.Errorf("%s: got %q want %q", p, got, w)
		}
	}
	ts := get(t, root, "time.timestamp")
	if ts.Raw.Uint64 == nil || *ts.Raw.Uint64 != 1700000000 {
		t.Errorf("timestamp raw: got %v", ts.Raw)
	}
	if _, err := root.Get(kpath.MustParse("time.timestamp_lo")); err == nil {
		t.Error("split halves must not appear in the tree")
	}
	target := get(t, root, "lrf.target")
	if target.Variant != "measurement" || target.Packed.String() != "3735928559" {
		t.Errorf("lrf.target: variant %q packed %v", target.Variant, target.Packed)
	}
	if err := root.Walk(func(n *ir.Node) error {
		if n.Missing {
			t.Errorf("%s unexpectedly missing", n.Path())
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestDecodePartial(t *testing.T) {
	d := testDecoder(t)
	snap := fullSnapshot()
	delete(snap["gps"].(map[string]any), "latitude")
	delete(snap, "lrf")
	root, err := d.Decode(snap, nil)
	pe := &PartialError{}
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PartialError, got %v", err)
	}
	if IsFatal(err) {
		t.Error("partial decode must not be fatal")
	}
	if diff := cmp.Diff([]string{"gps.latitude", "lrf"}, pe.Paths()); diff != "" {
		t.Errorf("missing paths (-want +got):\n%s", diff)
	}
	lat := get(t, root, "gps.latitude")
	if !lat.Missing || lat.Display != ir.MissingDisplay {
		t.Errorf("gps.latitude: got %+v", lat)
	}
	if got := get(t, root, "gps.longitude").Display; got != "35.012345" {
		t.Errorf("gps.longitude: got %q", got)
	}
	dist := get(t, root, "lrf.target.distance")
	if !dist.Missing || dist.Display != ir.MissingDisplay {
		t.Errorf("lrf.target.distance: got %+v", dist)
	}
}

func TestDecodeNullIsMissing(t *testing.T) {
	d := testDecoder(t)
	snap := fullSnapshot()
	snap["compass"].(map[string]any)["azimuth"] = nil
	root, err := d.Decode(snap, nil)
	if IsFatal(err) || err == nil {
		t.Fatalf("expected partial error, got %v", err)
	}
	if got := get(t, root, "compass.azimuth").Display; got != ir.MissingDisplay {
		t.Errorf("azimuth: got %q", got)
	}
}

func TestDecodeShortArray(t *testing.T) {
	d := testDecoder(t)
	snap := fullSnapshot()
	snap["power"] = map[string]any{"modules": []any{module(0), module(1)}}
	root, err := d.Decode(snap, nil)
	pe := &PartialError{}
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PartialError, got %v", err)
	}
	if len(pe.Missing) != 6 || pe.Missing[0].Path != "power.modules[2]" {
		t.Errorf("missing: got %v", pe.Paths())
	}
	modules := get(t, root, "power.modules")
	if len(modules.Values) != 8 {
		t.Fatalf("array resized to %d", len(modules.Values))
	}
	if got := get(t, root, "power.modules[1].voltage").Display; got != "24.00 V" {
		t.Errorf("modules[1].voltage: got %q", got)
	}
	if got := get(t, root, "power.modules[6].voltage").Display; got != ir.MissingDisplay {
		t.Errorf("modules[6].voltage: got %q", got)
	}
}

func TestDecodeTypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		edit func(map[string]any)
		obj  any
		path string
	}{
		{
			name: "string for int",
			edit: func(m map[string]any) { m["compass"].(map[string]any)["azimuth"] = "north" },
			path: "compass.azimuth",
		},
		{
			name: "out of range",
			edit: func(m map[string]any) { m["compass"].(map[string]any)["units_idx"] = 300 },
			path: "compass.status.units_idx",
		},
		{
			name: "negative unsigned",
			edit: func(m map[string]any) { m["header"].(map[string]any)["protocol_version"] = -1 },
			path: "header.protocol_version",
		},
		{
			name: "fractional integer",
			edit: func(m map[string]any) { m["gps"].(map[string]any)["fix_type"] = 2.5 },
			path: "gps.fix_type",
		},
		{
			name: "scalar for struct",
			edit: func(m map[string]any) { m["gps"] = 7 },
			path: "gps",
		},
		{
			name: "long array",
			edit: func(m map[string]any) {
				p := m["power"].(map[string]any)
				p["modules"] = append(p["modules"].([]any), module(8))
			},
			path: "power.modules",
		},
		{
			name: "timestamp half too wide",
			edit: func(m map[string]any) { m["time"].(map[string]any)["timestamp_hi"] = uint64(1) << 32 },
			path: "time.timestamp_hi",
		},
		{
			name: "wrong root shape",
			obj:  []any{1, 2, 3},
			path: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDecoder(t)
			obj := tt.obj
			if obj == nil {
				snap := fullSnapshot()
				tt.edit(snap)
				obj = snap
			}
			root, err := d.Decode(obj, nil)
			if root != nil {
				t.Error("type mismatch must not produce a tree")
			}
			if !IsFatal(err) {
				t.Fatalf("expected fatal error, got %v", err)
			}
			de := &DecodeError{}
			if !errors.As(err, &de) || de.Kind != TypeMismatch {
				t.Fatalf("expected type mismatch, got %v", err)
			}
			if de.Path != tt.path {
				t.Errorf("path: got %q want %q", de.Path, tt.path)
			}
		})
	}
}

func TestUnionPrecedence(t *testing.T) {
	tests := []struct {
		name         string
		fields       map[string]any
		display      string
		variant      string
		unrecognized bool
		packed       string
	}{
		{
			name:    "decoded in domain",
			fields:  map[string]any{"units_idx": 2, "units_idx_packed": 2},
			display: "Mils",
			variant: "units_idx",
			packed:  "2",
		},
		{
			name:         "decoded out of domain",
			fields:       map[string]any{"units_idx": 9, "units_idx_packed": 0x109},
			display:      "265 (unrecognized)",
			variant:      "units_idx_packed",
			unrecognized: true,
			packed:       "265",
		},
		{
			name:         "decoded absent",
			fields:       map[string]any{"units_idx_packed": 4},
			display:      "4 (unrecognized)",
			variant:      "units_idx_packed",
			unrecognized: true,
			packed:       "4",
		},
		{
			name:         "out of domain without packed",
			fields:       map[string]any{"units_idx": 9},
			display:      "9 (unrecognized)",
			variant:      "units_idx",
			unrecognized: true,
		},
		{
			name:    "decoded only",
			fields:  map[string]any{"units_idx": 1},
			display: "Degrees",
			variant: "units_idx",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDecoder(t)
			snap := fullSnapshot()
			c := map[string]any{"azimuth": 1600, "elevation": 0, "bank": 0}
			for k, v := range tt.fields {
				c[k] = v
			}
			snap["compass"] = c
			root, err := d.Decode(snap, nil)
			if err != nil {
				t.Fatal(err)
			}
			st := get(t, root, "compass.status")
			if st.Display != tt.display || st.Variant != tt.variant || st.Unrecognized != tt.unrecognized {
				t.Errorf("got display %q variant %q unrecognized %v", st.Display, st.Variant, st.Unrecognized)
			}
			if got := st.Packed.String(); got != tt.packed {
				t.Errorf("packed: got %q want %q", got, tt.packed)
			}
			if !st.IsLeaf() || st.Values[0].Display != st.Display {
				t.Errorf("union view out of sync: %+v", st.Values[0])
			}
		})
	}
}

func TestUnionPreferPacked(t *testing.T) {
	reg, err := schema.Load([]byte(`
root: s
types:
  s: {kind: struct, fields: [{name: u, type: u, inline: true}]}
  u:
    kind: union
    display: packed
    variants:
      - {name: mode, role: decoded, type: uint8}
      - {name: mode_packed, role: packed, type: uint32, semantic: hex}
semantics:
  hex: {rule: hex}
`))
	if err != nil {
		t.Fatal(err)
	}
	f, err := fieldfmt.FromRegistry(reg)
	if err != nil {
		t.Fatal(err)
	}
	d := New(reg, f)
	root, err := d.Decode(map[string]any{"mode": 1, "mode_packed": 0x21}, nil)
	if err != nil {
		t.Fatal(err)
	}
	u := get(t, root, "u")
	if u.Display != "0x21" || u.Unrecognized || u.Variant != "mode_packed" {
		t.Errorf("got %+v", u)
	}
	root, err = d.Decode(map[string]any{"mode": 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if u := get(t, root, "u"); u.Display != "1" || u.Variant != "mode" {
		t.Errorf("decoded only: got %+v", u)
	}
}

func TestSplitTimestamp(t *testing.T) {
	d := testDecoder(t)
	tests := []struct {
		name    string
		fields  map[string]any
		display string
		missing bool
	}{
		{
			name:    "halves",
			fields:  map[string]any{"timestamp_lo": uint32(1700000000), "timestamp_hi": 0},
			display: "2023-11-14 22:13:20",
		},
		{
			name:    "joined value",
			fields:  map[string]any{"timestamp": 1700000000},
			display: "2023-11-14 22:13:20",
		},
		{
			name:    "one half",
			fields:  map[string]any{"timestamp_lo": 5},
			display: ir.MissingDisplay,
			missing: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := fullSnapshot()
			tt.fields["manual_timestamp"] = 0
			snap["time"] = tt.fields
			root, err := d.Decode(snap, nil)
			if IsFatal(err) {
				t.Fatal(err)
			}
			ts := get(t, root, "time.timestamp")
			if ts.Display != tt.display || ts.Missing != tt.missing {
				t.Errorf("got %q missing=%v", ts.Display, ts.Missing)
			}
		})
	}
}

func TestJoinHalvesRoundTrip(t *testing.T) {
	pairs := [][2]uint32{
		{0, 0},
		{0xffffffff, 0},
		{0, 0xffffffff},
		{0xffffffff, 0xffffffff},
		{0x80000000, 0x7fffffff},
		{0x12345678, 0x9abcdef0},
		{1, 0x80000000},
	}
	for _, p := range pairs {
		v := JoinHalves(p[0], p[1])
		if want := uint64(p[1])<<32 | uint64(p[0]); v != want {
			t.Errorf("JoinHalves(%#x, %#x) = %#x want %#x", p[0], p[1], v, want)
		}
		lo, hi := SplitHalves(v)
		if lo != p[0] || hi != p[1] {
			t.Errorf("SplitHalves(%#x) = %#x, %#x", v, lo, hi)
		}
	}
	for lo := uint32(1); lo != 0; lo <<= 1 {
		for hi := uint32(1); hi != 0; hi <<= 1 {
			if lo2, hi2 := SplitHalves(JoinHalves(lo, hi)); lo2 != lo || hi2 != hi {
				t.Fatalf("round trip of %#x %#x gave %#x %#x", lo, hi, lo2, hi2)
			}
		}
	}
}

type countingRule struct {
	n int
}

func (c *countingRule) Format(raw *ir.Raw) (string, error) {
	c.n++
	return "angle " + raw.String(), nil
}

func TestDecodeReusesDisplay(t *testing.T) {
	reg, err := schema.LoadFile("../schema/testdata/jon_gui_state.yaml")
	if err != nil {
		t.Fatal(err)
	}
	f, err := fieldfmt.FromRegistry(reg)
	if err != nil {
		t.Fatal(err)
	}
	cr := &countingRule{}
	f.Register("angle", cr)
	d := New(reg, f)

	first, err := d.Decode(fullSnapshot(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cr.n != 2 {
		t.Fatalf("first decode formatted %d angles, want 2", cr.n)
	}
	snap := fullSnapshot()
	snap["compass"].(map[string]any)["elevation"] = 0
	second, err := d.Decode(snap, first)
	if err != nil {
		t.Fatal(err)
	}
	if cr.n != 3 {
		t.Errorf("second decode formatted %d angles in total, want 3", cr.n)
	}
	if got := get(t, second, "compass.azimuth").Display; got != "angle 1600" {
		t.Errorf("reused display: got %q", got)
	}
	if got := get(t, second, "compass.elevation").Display; got != "angle 0" {
		t.Errorf("fresh display: got %q", got)
	}
}
