package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/rule"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/scope"
	searchuc "github.com/kailas-cloud/searchbridge/internal/usecase/search"
	"github.com/kailas-cloud/searchbridge/internal/version"
)

func TestRootCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("root --help failed: %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"serve", "search", "count", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q:\n%s", sub, out)
		}
	}
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"nonexistent-command"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown command, got nil")
	}
}

func TestSearchCmd_RequiresArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"search", "posts"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing query")
	}
}

func TestSearchCmd_LazyAndPage(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"search", "posts", "golang", "--lazy", "--page", "2"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected flag conflict error, got %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(buf.String(), "searchbridge version "+version.Version) {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		wantArgs []any
	}{
		{"published", "published", nil},
		{"lang=en", "lang", []any{"en"}},
		{"tag=a=b", "tag", []any{"a=b"}},
		{"empty=", "empty", []any{""}},
	}
	for _, tc := range tests {
		name, args := parseScope(tc.in)
		if name != tc.wantName || !reflect.DeepEqual(args, tc.wantArgs) {
			t.Errorf("parseScope(%q) = %q, %v; want %q, %v", tc.in, name, args, tc.wantName, tc.wantArgs)
		}
	}
}

// --- search output ---

type fakeEngine struct{}

func (fakeEngine) Search(context.Context, string, map[string]any) (*engine.Response, error) {
	return &engine.Response{
		Total: 2,
		Hits:  []engine.Hit{{ID: "posts_1", Score: 2}, {ID: "posts_2", Score: 1}},
	}, nil
}

func (fakeEngine) Count(context.Context, string, map[string]any) (int64, error) { return 2, nil }

type fakeStore struct{}

func (fakeStore) FetchByKeys(
	_ context.Context, _ *record.Type, keys, _ []string,
) (map[string]record.Record, error) {
	out := make(map[string]record.Record, len(keys))
	for _, k := range keys {
		out[k] = record.Record{Key: k, Fields: map[string]any{"id": k}}
	}
	return out, nil
}

func (fakeStore) StreamByKeys(context.Context, *record.Type, []string, []string) (record.Source, error) {
	return nil, errors.New("not used")
}

func newTestSearch(t *testing.T) *searchuc.Service {
	t.Helper()
	svc := searchuc.New(fakeEngine{}, fakeStore{}, nil)
	err := svc.RegisterType(record.Type{
		Name:   "posts",
		Index:  "posts",
		Rules:  []criteria.Rule{&rule.QueryString{}},
		Scopes: []scope.Extension{{Name: "lang", Fn: scope.Filter(filter.Must, "lang", nil)}},
	})
	if err != nil {
		t.Fatalf("register type: %v", err)
	}
	return svc
}

func TestBuildCriteria(t *testing.T) {
	svc := newTestSearch(t)

	c, err := buildCriteria(svc, "posts", "golang", []string{"lang=en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Query() != "golang" || len(c.Filters().Must()) != 1 {
		t.Errorf("unexpected criteria: query=%q filters=%d", c.Query(), len(c.Filters().Must()))
	}

	if _, err := buildCriteria(svc, "posts", "golang", []string{"missing"}); !errors.Is(err, scope.ErrUnknownScope) {
		t.Errorf("expected ErrUnknownScope, got %v", err)
	}
	if _, err := buildCriteria(svc, "ghosts", "x", nil); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestRunSearch_Page(t *testing.T) {
	svc := newTestSearch(t)
	c, err := buildCriteria(svc, "posts", "golang", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	buf := new(bytes.Buffer)
	if err := runSearch(context.Background(), buf, svc, c, &searchFlags{page: 1, perPage: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out searchOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.Total != 2 || out.Page != 1 || out.PerPage != 1 || out.LastPage != 2 {
		t.Errorf("unexpected paging: %+v", out)
	}
	if len(out.Items) != 2 || out.Items[0].Key != "1" {
		t.Errorf("unexpected items: %+v", out.Items)
	}
}
