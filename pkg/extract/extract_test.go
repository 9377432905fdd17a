package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPlaintext_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		input    string
		wantText string
		wantErr  error
	}{
		{
			name:     "txt file",
			filename: "nda.txt",
			input:    "  This Agreement is made between the parties.\n",
			wantText: "This Agreement is made between the parties.",
		},
		{
			name:     "markdown file",
			filename: "LEASE.md",
			input:    "# Lease\n\nTerm: 12 months.",
			wantText: "# Lease\n\nTerm: 12 months.",
		},
		{
			name:     "unsupported extension",
			filename: "contract.pdf",
			input:    "%PDF-1.4",
			wantErr:  ErrUnsupportedFileType,
		},
		{
			name:     "empty file",
			filename: "empty.txt",
			input:    "   \n\t",
			wantErr:  ErrParseFailure,
		},
		{
			name:     "invalid utf8",
			filename: "garbage.txt",
			input:    "valid\xff\xfeinvalid",
			wantErr:  ErrParseFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := (&Plaintext{}).Extract(context.Background(), tt.filename, strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Extract() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if doc.Text != tt.wantText {
				t.Errorf("Extract() text = %q, want %q", doc.Text, tt.wantText)
			}
			if len(doc.OCRPages) != 0 {
				t.Errorf("Extract() OCRPages = %v, want empty", doc.OCRPages)
			}
		})
	}
}

func TestPlaintext_MaxBytes(t *testing.T) {
	t.Parallel()

	doc, err := (&Plaintext{MaxBytes: 4}).Extract(context.Background(), "big.txt", strings.NewReader("abcdefgh"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if doc.Text != "abcd" {
		t.Errorf("Extract() text = %q, want truncated %q", doc.Text, "abcd")
	}
}
