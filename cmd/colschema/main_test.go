package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunMain_PrintsColumnsInSourceOrder(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "people.csv")
	xmlPath := filepath.Join(dir, "report.xml")
	if err := os.WriteFile(csvPath, []byte("Name,ID,Name\n1,2,3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	report := `<saw:report xmlns:saw="com.siebel.analytics.web/report/v1.1" xmlns:sawx="com.siebel.analytics.web/expression/v1.1" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <saw:criteria><saw:columns>
    <saw:column><saw:columnFormula><sawx:expr xsi:type="sawx:sqlExpression">"Sales"."Region"</sawx:expr></saw:columnFormula></saw:column>
  </saw:columns></saw:criteria>
</saw:report>`
	if err := os.WriteFile(xmlPath, []byte(report), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{csvPath, xmlPath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code=%d stderr=%q", code, stderr.String())
	}

	want := csvPath + " (csv): 3 columns\n  Name\n  ID\n  Name\n\n" +
		xmlPath + " (xml): 1 columns\n  sales.region\n"
	if stdout.String() != want {
		t.Fatalf("stdout=\n%s\nwant\n%s", stdout.String(), want)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("colschema wrote files: %d entries", len(entries))
	}
}

func TestRunMain_JSONUniform(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.csv")
	if err := os.WriteFile(p, []byte("Id ,NAME\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := runMain(context.Background(), []string{"-json", "-normalize", "uniform", p}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code=%d stderr=%q", code, stderr.String())
	}

	var got []struct {
		Source  string   `json:"source"`
		Format  string   `json:"format"`
		Columns []string `json:"columns"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout.String())
	}
	if len(got) != 1 || got[0].Format != "csv" || strings.Join(got[0].Columns, ",") != "id,name" {
		t.Fatalf("got=%+v", got)
	}
}

func TestRunMain_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("[1,"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{name: "no_files", args: nil, wantCode: 2, wantErr: "usage: colschema"},
		{name: "bad_normalization", args: []string{"-normalize", "x", bad}, wantCode: 2, wantErr: "normalization"},
		{name: "malformed", args: []string{bad}, wantCode: 1, wantErr: "bad.json"},
		{name: "unsupported", args: []string{filepath.Join(dir, "a.parquet")}, wantCode: 1, wantErr: "unsupported format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := runMain(context.Background(), tc.args, &stdout, &stderr); code != tc.wantCode {
				t.Fatalf("exit code=%d, want %d; stderr=%q", code, tc.wantCode, stderr.String())
			}
			if !strings.Contains(stderr.String(), tc.wantErr) {
				t.Fatalf("stderr=%q, want contains %q", stderr.String(), tc.wantErr)
			}
		})
	}
}
