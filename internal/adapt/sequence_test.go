package adapt

import (
	"database/sql/driver"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestAdaptSequences(t *testing.T) {
	five := 5

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"empty slice", []int{}, "'{}'"},
		{"empty any slice", []any{}, "'{}'"},
		{"ints", []int{1, 2, 3}, "'{1,2,3}'"},
		{"negative ints have no space inside arrays", []int{-1, 2}, "'{-1,2}'"},
		{"fixed array", [3]int{1, 2, 3}, "'{1,2,3}'"},
		{"byte array stays integers", [2]byte{1, 2}, "'{1,2}'"},
		{"nested depth 2", [][]int{{1, 2}, {3, 4}}, "'{{1,2},{3,4}}'"},
		{"bools use t and f", []bool{true, false}, "'{t,f}'"},
		{"nil element", []any{1, nil, "x"}, "'{1,NULL,x}'"},
		{"nil pointer element", []*int{nil, &five}, "'{NULL,5}'"},
		{"quote in element", []string{"it's"}, "'{it''s}'"},
		{"elements needing array quotes", []string{"a b", "", "NULL", "null", `q"x`, `b\s`, "{x}", "a,b", "plain"},
			`'{"a b","","NULL","null","q\"x","b\\s","{x}","a,b",plain}'`},
		{"heterogeneous", []any{1, "two", 3.5, true}, "'{1,two,3.5,t}'"},
		{"bytea elements", [][]byte{{0x01}, nil}, `'{"\\x01",NULL}'`},
		{"array with cast", Array{Items: []int64{}, Cast: "int8[]"}, "'{}'::int8[]"},
		{"array with delimiter", Array{Items: []string{"a;b", "c"}, Delim: ';'}, `'{"a;b";c}'`},
		{"nil slice is null", []int(nil), "NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Adapt(tt.value, nil)
			if err != nil {
				t.Fatalf("Adapt(%v) error = %v", tt.value, err)
			}
			if string(got) != tt.want {
				t.Errorf("Adapt(%v) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}

func TestAdaptSequenceExtendedEscaping(t *testing.T) {
	got, err := Adapt([]string{`b\s`, "it's"}, extended)
	if err != nil {
		t.Fatalf("Adapt() error = %v", err)
	}
	want := `E'{"b\\\\s",it''s}'`
	if string(got) != want {
		t.Errorf("Adapt() = %s, want %s", got, want)
	}
}

func TestSequencePreservesOrder(t *testing.T) {
	perms := [][]string{
		{"a", "b", "c"}, {"a", "c", "b"}, {"b", "a", "c"},
		{"b", "c", "a"}, {"c", "a", "b"}, {"c", "b", "a"},
	}
	for _, p := range perms {
		got, err := Adapt(p, nil)
		if err != nil {
			t.Fatalf("Adapt(%v) error = %v", p, err)
		}
		want := "'{" + strings.Join(p, ",") + "}'"
		if string(got) != want {
			t.Errorf("Adapt(%v) = %s, want %s", p, got, want)
		}
	}
}

// The connection-less path and a bound context differ only in escaping:
// undoing the extended-mode escaping gives back the standard literal.
func TestSequenceShapeIndependentOfContext(t *testing.T) {
	values := []any{
		[]string{"plain", `back\slash`, "it's"},
		[][]string{{`a\b`, "c"}, {"d", `e"f`}},
		[]any{1, nil, `x\y`},
	}
	for _, v := range values {
		std, err := Adapt(v, nil)
		if err != nil {
			t.Fatalf("Adapt(%v, nil) error = %v", v, err)
		}
		ext, err := Adapt(v, extended)
		if err != nil {
			t.Fatalf("Adapt(%v, extended) error = %v", v, err)
		}
		undone := strings.ReplaceAll(strings.TrimPrefix(string(ext), "E"), `\\`, `\`)
		if undone != string(std) {
			t.Errorf("shapes differ for %v: standard %s, extended %s", v, std, ext)
		}
		if strings.Count(string(std), "{") != strings.Count(string(ext), "{") {
			t.Errorf("brace count differs for %v", v)
		}
	}
}

func nest(depth int) any {
	var v any = 1
	for i := 0; i < depth; i++ {
		v = []any{v}
	}
	return v
}

func TestSequenceDepthBound(t *testing.T) {
	if _, err := Adapt(nest(DefaultMaxDepth), nil); err != nil {
		t.Fatalf("Adapt(depth %d) error = %v", DefaultMaxDepth, err)
	}

	_, err := Adapt(nest(DefaultMaxDepth+1), nil)
	if !errors.Is(err, ErrRecursion) {
		t.Fatalf("Adapt(depth %d) error = %v, want ErrRecursion", DefaultMaxDepth+1, err)
	}

	shallow := NewRegistry(WithMaxDepth(2))
	if _, err := shallow.Adapt(nest(2), nil); err != nil {
		t.Errorf("Adapt(depth 2, max 2) error = %v", err)
	}
	if _, err := shallow.Adapt(nest(3), nil); !errors.Is(err, ErrRecursion) {
		t.Errorf("Adapt(depth 3, max 2) error = %v, want ErrRecursion", err)
	}
}

type loopValuer struct{}

func (loopValuer) Value() (driver.Value, error) { return loopValuer{}, nil }

type failingValuer struct{}

func (failingValuer) Value() (driver.Value, error) { return nil, errors.New("sensor offline") }

func TestValuerIndirection(t *testing.T) {
	if _, err := Adapt(loopValuer{}, nil); !errors.Is(err, ErrRecursion) {
		t.Errorf("Adapt(self-referential Valuer) error = %v, want ErrRecursion", err)
	}

	_, err := Adapt([]any{1, failingValuer{}}, nil)
	if !errors.Is(err, ErrValue) {
		t.Fatalf("Adapt(failing Valuer) error = %v, want ErrValue", err)
	}
	var aerr *Error
	if !errors.As(err, &aerr) || !reflect.DeepEqual(aerr.Path, []int{1}) {
		t.Errorf("error path = %v, want [1]", aerr)
	}
}

func TestSequenceErrorNamesPositionAndType(t *testing.T) {
	_, err := Adapt([]any{1, []any{2, struct{}{}}}, nil)
	if !errors.Is(err, ErrAdaptation) {
		t.Fatalf("Adapt() error = %v, want ErrAdaptation", err)
	}

	var aerr *Error
	if !errors.As(err, &aerr) {
		t.Fatalf("error %T is not *Error", err)
	}
	if !reflect.DeepEqual(aerr.Path, []int{1, 1}) {
		t.Errorf("Path = %v, want [1 1]", aerr.Path)
	}
	if aerr.Type != "struct {}" {
		t.Errorf("Type = %q, want %q", aerr.Type, "struct {}")
	}
	if !strings.Contains(err.Error(), "[1][1]") {
		t.Errorf("Error() = %q, want it to contain the index path", err.Error())
	}
}

func TestSequenceRejectsNullSubArray(t *testing.T) {
	tests := []struct {
		name  string
		value any
		path  []int
	}{
		{"nil sub-slice", [][]int{{1, 2}, nil}, []int{1}},
		{"nil before sub-array", []any{nil, []int{1}}, []int{0}},
		{"deeper level", [][][]int{{{1}}, {{2}, nil}}, []int{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Adapt(tt.value, nil)
			if !errors.Is(err, ErrValue) {
				t.Fatalf("Adapt() = %s, %v, want ErrValue", got, err)
			}
			var aerr *Error
			if !errors.As(err, &aerr) || !reflect.DeepEqual(aerr.Path, tt.path) {
				t.Errorf("error path = %v, want %v", aerr, tt.path)
			}
		})
	}

	// NULL next to scalars and bytea stays legal.
	for _, v := range []any{[]any{nil, 1}, [][]byte{nil, {1}}} {
		if _, err := Adapt(v, nil); err != nil {
			t.Errorf("Adapt(%v) error = %v", v, err)
		}
	}
}

func TestSequenceRejectsNonElements(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"raw inside array", []any{Raw("now()")}},
		{"tuple inside array", []any{Tuple{1}}},
		{"identifier inside array", []any{Ident("t")}},
		{"NUL inside element", []string{"ok", "bad\x00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Adapt(tt.value, nil)
			if !errors.Is(err, ErrValue) {
				t.Errorf("Adapt() error = %v, want ErrValue", err)
			}
			if got != nil {
				t.Errorf("Adapt() returned partial output %q", got)
			}
		})
	}
}

func TestSequenceEncodingErrorCarriesIndex(t *testing.T) {
	_, err := Adapt([]string{"ok", "€"}, StaticContext{ClientEncoding: "LATIN1"})
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("Adapt() error = %v, want ErrEncoding", err)
	}
	var aerr *Error
	if errors.As(err, &aerr) && !reflect.DeepEqual(aerr.Path, []int{1}) {
		t.Errorf("Path = %v, want [1]", aerr.Path)
	}
}
