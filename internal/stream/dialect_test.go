package stream

import (
	"errors"
	"strings"
	"testing"
)

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		name    string
		sample  string
		want    rune
		wantErr bool
	}{
		{
			name:   "comma",
			sample: "id,amount,measured\nA1,12.5,2024-01-15\nB2,3,2023-12-31\n",
			want:   ',',
		},
		{
			name:   "semicolon",
			sample: "id;amount;measured\nA1;12,5;2024-01-15\n",
			want:   ';',
		},
		{
			name:   "tab",
			sample: "id\tamount\nA1\t12.5\nB2\t3\n",
			want:   '\t',
		},
		{
			name:   "pipe",
			sample: "id|amount\nA1|12.5\n",
			want:   '|',
		},
		{
			name:   "quoted delimiter shifts counts",
			sample: "id;note\nA1;\"a, b, c\"\nB2;plain\n",
			want:   ';',
		},
		{
			name:   "uneven counts fall back to presence",
			sample: "id,note\nA1,\"x,y\"\nB2,plain\n",
			want:   ',',
		},
		{
			name:   "preference order breaks ties",
			sample: "a,b;c\nd,e;f\n",
			want:   ',',
		},
		{
			name:   "crlf line endings",
			sample: "id,amount\r\nA1,12.5\r\n",
			want:   ',',
		},
		{
			name:    "single column",
			sample:  "id\nA1\nB2\n",
			wantErr: true,
		},
		{
			name:    "empty sample",
			sample:  "",
			wantErr: true,
		},
		{
			name:    "blank lines only",
			sample:  "\n\n  \n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DetectDialect([]byte(tt.sample))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DetectDialect() = %q, want error", d.Comma)
				}
				var de *DialectError
				if !errors.As(err, &de) {
					t.Fatalf("error type = %T, want *DialectError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectDialect() error: %v", err)
			}
			if d.Comma != tt.want {
				t.Errorf("delimiter = %q, want %q", d.Comma, tt.want)
			}
		})
	}
}

func TestCutSample(t *testing.T) {
	full := "id,amount\nA1,12.5\nB2,3"

	if got := cutSample([]byte(full), false); string(got) != full {
		t.Errorf("untruncated sample modified: %q", got)
	}
	if got := cutSample([]byte(full), true); string(got) != "id,amount\nA1,12.5" {
		t.Errorf("truncated sample = %q, want cut at last newline", got)
	}
	if got := cutSample([]byte("no newline at all"), true); string(got) != "no newline at all" {
		t.Errorf("sample without newline = %q, want kept whole", got)
	}
}

func TestDetectDialect_LongSample(t *testing.T) {
	var b strings.Builder
	b.WriteString("id;amount\n")
	for i := 0; i < 2000; i++ {
		b.WriteString("A1;12.5\n")
	}
	sample := []byte(b.String())
	if len(sample) < SampleSize {
		t.Fatalf("sample too short for test: %d", len(sample))
	}
	sample = cutSample(sample[:SampleSize], true)

	d, err := DetectDialect(sample)
	if err != nil {
		t.Fatalf("DetectDialect() error: %v", err)
	}
	if d.Comma != ';' {
		t.Errorf("delimiter = %q, want ';'", d.Comma)
	}
}
