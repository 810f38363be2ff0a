package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
	"github.com/adverant/nexus/layoutocr-worker/internal/processor"
	"github.com/adverant/nexus/layoutocr-worker/internal/storage"
)

func TestParseInts(t *testing.T) {
	v, err := parseInts("10, 20,30,40", 4)
	if err != nil {
		t.Fatalf("parseInts: %v", err)
	}
	if v[0] != 10 || v[1] != 20 || v[3] != 40 {
		t.Errorf("unexpected values %v", v)
	}

	if _, err := parseInts("1,2,3", 4); err == nil {
		t.Error("expected error for wrong count")
	}
	if _, err := parseInts("1,x", 2); err == nil {
		t.Error("expected error for non-number")
	}
}

func TestBuildPayload(t *testing.T) {
	opts := options{
		language:    "de",
		mode:        "table",
		region:      "0,0,200,100",
		point:       "15,25",
		deviceScale: 2,
		noCalibrate: true,
	}

	payload, err := buildPayload(opts, []byte{1, 2})
	if err != nil {
		t.Fatalf("buildPayload: %v", err)
	}
	if payload.JobID != "local" {
		t.Errorf("JobID = %q", payload.JobID)
	}
	if payload.Region == nil || payload.Region.Width != 200 {
		t.Errorf("Region = %+v", payload.Region)
	}
	if payload.Point == nil || payload.Point.Y != 25 {
		t.Errorf("Point = %+v", payload.Point)
	}
	if payload.Calibrate == nil || *payload.Calibrate {
		t.Errorf("Calibrate = %v", payload.Calibrate)
	}

	req, err := payload.ToRequest()
	if err != nil {
		t.Fatalf("ToRequest: %v", err)
	}
	if req.Language != "de" || req.DeviceScale != 2 {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestBuildPayloadSubmitLeavesJobID(t *testing.T) {
	payload, err := buildPayload(options{mode: "auto", submit: true}, []byte{1})
	if err != nil {
		t.Fatalf("buildPayload: %v", err)
	}
	if payload.JobID != "" {
		t.Errorf("JobID = %q, want empty", payload.JobID)
	}
}

func TestBuildPayloadRejectsBadRegion(t *testing.T) {
	if _, err := buildPayload(options{region: "1,2"}, nil); err == nil {
		t.Error("expected error")
	}
}

func TestPrintSimilar(t *testing.T) {
	var buf bytes.Buffer
	printSimilar(&buf, []*storage.SimilarLayout{
		{JobID: "job-1", Mode: "table", Text: "Month\tInt\nJanuary\t1", SimilarityScore: 0.98765},
	})

	if got := buf.String(); got != "0.988\tjob-1\ttable\tMonth\tInt\n" {
		t.Errorf("printSimilar = %q", got)
	}

	buf.Reset()
	printSimilar(&buf, nil)
	if !strings.Contains(buf.String(), "no similar layouts") {
		t.Errorf("empty listing = %q", buf.String())
	}
}

func TestListSimilarNeedsQdrant(t *testing.T) {
	t.Setenv("QDRANT_URL", "")
	result := &processor.CaptureResult{
		Layout:    &layout.LayoutResult{Rows: [][]layout.TextAtom{{{Text: "a"}}}},
		Signature: make([]float32, storage.SignatureDimensions),
	}

	if err := listSimilar(context.Background(), result, 3, &bytes.Buffer{}); err == nil {
		t.Error("expected error without QDRANT_URL")
	}
}

func TestListSimilarSkipsEmptyLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := listSimilar(context.Background(), &processor.CaptureResult{}, 3, &buf); err != nil {
		t.Fatalf("listSimilar: %v", err)
	}
	if !strings.Contains(buf.String(), "nothing to compare") {
		t.Errorf("output = %q", buf.String())
	}
}
