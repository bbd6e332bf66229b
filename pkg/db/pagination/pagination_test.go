package pagination

import "testing"

type row struct{ id string }

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", SortKey: "2025-01-02"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cursor, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cursor.ID != "42" || cursor.SortKey != "2025-01-02" {
		t.Fatalf("unexpected cursor %+v", cursor)
	}
}

func TestBuildCursorPageInfo(t *testing.T) {
	rows := []*row{{"3"}, {"2"}, {"1"}}
	info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.id })
	if !info.HasMore || info.NextPageToken != "2" {
		t.Fatalf("unexpected page info %+v", info)
	}

	info = BuildCursorPageInfo(rows, 5, func(r *row) string { return r.id })
	if info.HasMore || info.NextPageToken != "" {
		t.Fatalf("expected last page, got %+v", info)
	}
}

func TestSizeClamps(t *testing.T) {
	if got := (Pagination{}).Size(); got != DefaultPageSize {
		t.Fatalf("expected default size, got %d", got)
	}
	if got := (Pagination{PageSize: 1000}).Size(); got != MaxPageSize {
		t.Fatalf("expected max size, got %d", got)
	}
}
