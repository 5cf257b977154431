package fixture_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sea-intercept/internal/fixture"
)

const mockUser = `{"data":{"id":2,"email":"test987@reqres.in","first_name":"Test","last_name":"User"}}`

type countingStore struct {
	docs  map[string][]byte
	loads map[string]int
}

func (s *countingStore) Load(name string) ([]byte, error) {
	s.loads[name]++
	b, ok := s.docs[name]
	if !ok {
		return nil, fixture.ErrNotExist
	}
	return b, nil
}

func TestResolve_CachesByName(t *testing.T) {
	st := &countingStore{docs: map[string][]byte{"mockUser.json": []byte(mockUser)}, loads: map[string]int{}}
	r := fixture.NewResolver(st, nil)

	var first *fixture.Fixture
	for i := 0; i < 5; i++ {
		f, err := r.Resolve("mockUser.json")
		if err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
		if first == nil {
			first = f
		} else if f != first {
			t.Fatalf("Resolve #%d returned a different pointer", i)
		}
	}
	if st.loads["mockUser.json"] != 1 {
		t.Fatalf("store loads = %d, want 1", st.loads["mockUser.json"])
	}

	want := map[string]any{"data": map[string]any{
		"id": float64(2), "email": "test987@reqres.in", "first_name": "Test", "last_name": "User",
	}}
	if diff := cmp.Diff(want, first.Body); diff != "" {
		t.Fatalf("body (-want +got):\n%s", diff)
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := fixture.NewResolver(fixture.MapStore{}, nil)
	_, err := r.Resolve("missing.json")
	var nf *fixture.NotFoundError
	if !errors.As(err, &nf) || nf.Name != "missing.json" {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !errors.Is(err, fixture.ErrNotExist) {
		t.Fatalf("NotFoundError should unwrap to ErrNotExist")
	}
}

func TestResolve_ParseErrorIsNotCached(t *testing.T) {
	st := fixture.MapStore{"broken.json": []byte(`{"data":`)}
	r := fixture.NewResolver(st, nil)

	_, err := r.Resolve("broken.json")
	var pe *fixture.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}

	st["broken.json"] = []byte(`{"data":{"id":1}}`)
	f, err := r.Resolve("broken.json")
	if err != nil {
		t.Fatalf("retry after fix: %v", err)
	}
	if string(f.Raw) != `{"data":{"id":1}}` {
		t.Fatalf("raw = %s", f.Raw)
	}
	if r.Loads() != 2 {
		t.Fatalf("loads = %d, want 2", r.Loads())
	}
}

func TestResolve_TrailingDataIsParseError(t *testing.T) {
	for _, raw := range []string{`{"a":1}}`, `{"a":1}]`, `{"a":1} {"b":2}`, `[1]x`} {
		r := fixture.NewResolver(fixture.MapStore{"bad.json": []byte(raw)}, nil)
		f, err := r.Resolve("bad.json")
		var pe *fixture.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected ParseError, got fixture=%v err=%v", raw, f, err)
		}
	}

	r := fixture.NewResolver(fixture.MapStore{"ok.json": []byte("{\"a\":1}\n  ")}, nil)
	if _, err := r.Resolve("ok.json"); err != nil {
		t.Fatalf("trailing whitespace: %v", err)
	}
}

func TestDirStore_ExtensionsAndYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "user.yaml"), []byte("data:\n  id: 7\n  email: a@b.c\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mockUser.json"), []byte(mockUser), 0o644); err != nil {
		t.Fatal(err)
	}
	r := fixture.NewResolver(fixture.DirStore{Dir: dir}, nil)

	f, err := r.Resolve("user")
	if err != nil {
		t.Fatalf("Resolve user: %v", err)
	}
	if string(f.Raw) != `{"data":{"email":"a@b.c","id":7}}` {
		t.Fatalf("raw = %s", f.Raw)
	}

	if _, err := r.Resolve("mockUser"); err != nil {
		t.Fatalf("Resolve mockUser without extension: %v", err)
	}

	var nf *fixture.NotFoundError
	if _, err := r.Resolve("../etc/passwd"); !errors.As(err, &nf) {
		t.Fatalf("traversal should be not found, got %v", err)
	}
}

func TestDirStore_DotDotPrefixedName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "..hidden.json"), []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	st := fixture.DirStore{Dir: dir}

	b, err := st.Load("..hidden.json")
	if err != nil {
		t.Fatalf("load ..hidden.json: %v", err)
	}
	if string(b) != `{"ok":true}` {
		t.Fatalf("body = %s", b)
	}

	for _, name := range []string{"..", "../x.json", "a/../../x.json"} {
		if _, err := st.Load(name); !errors.Is(err, fixture.ErrNotExist) {
			t.Fatalf("%s: expected ErrNotExist, got %v", name, err)
		}
	}
}
