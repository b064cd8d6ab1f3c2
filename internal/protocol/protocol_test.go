package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/room"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Action
		wantErr error
	}{
		{
			name: "cursor move",
			data: `{"type":"cursor_move","data":{"x":10,"y":20.5,"isDrawing":true}}`,
			want: CursorMove{X: 10, Y: 20.5, IsDrawing: true},
		},
		{
			name: "cursor move without drawing flag",
			data: `{"type":"cursor_move","data":{"x":0,"y":0}}`,
			want: CursorMove{},
		},
		{
			name:    "cursor move missing y",
			data:    `{"type":"cursor_move","data":{"x":1}}`,
			wantErr: ErrMalformed,
		},
		{
			name: "draw point",
			data: `{"type":"draw_point","data":{"point":{"x":3,"y":4}}}`,
			want: DrawPoint{Point: room.Point{X: 3, Y: 4}},
		},
		{
			name:    "draw point without point",
			data:    `{"type":"draw_point","data":{}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "draw end without points",
			data:    `{"type":"draw_end","data":{"points":[],"width":2}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "draw end without width",
			data:    `{"type":"draw_end","data":{"points":[{"x":1,"y":1}]}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "draw end with incomplete point",
			data:    `{"type":"draw_end","data":{"points":[{"x":1}],"width":2}}`,
			wantErr: ErrMalformed,
		},
		{
			name: "undo",
			data: `{"type":"undo_request"}`,
			want: Undo{},
		},
		{
			name: "redo",
			data: `{"type":"redo_request"}`,
			want: Redo{},
		},
		{
			name: "clear",
			data: `{"type":"clear_request"}`,
			want: Clear{},
		},
		{
			name:    "missing data",
			data:    `{"type":"cursor_move"}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "missing type",
			data:    `{"data":{}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "unknown type",
			data:    `{"type":"erase_everything"}`,
			wantErr: ErrUnknownType,
		},
		{
			name:    "server-only type",
			data:    `{"type":"new_stroke","data":{}}`,
			wantErr: ErrUnknownType,
		},
		{
			name:    "not json",
			data:    `not json`,
			wantErr: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got.Type() != tt.want.Type() {
				t.Errorf("Expected %s, got %s", tt.want.Type(), got.Type())
			}
			if _, isDrawEnd := tt.want.(DrawEnd); !isDrawEnd && got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseDrawEnd(t *testing.T) {
	got, err := ParseAction([]byte(`{"type":"draw_end","data":{"points":[{"x":1,"y":2},{"x":3,"y":4}],"width":5,"color":"#123456"}}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	end, ok := got.(DrawEnd)
	if !ok {
		t.Fatalf("Expected DrawEnd, got %T", got)
	}
	if len(end.Points) != 2 || end.Points[1] != (room.Point{X: 3, Y: 4}) {
		t.Errorf("Points mismatch: %v", end.Points)
	}
	if end.Width != 5 || end.Color != "#123456" {
		t.Errorf("Width/color mismatch: %v %s", end.Width, end.Color)
	}
}

func TestEventEncode(t *testing.T) {
	data, err := Event{Type: TypeHistoryUndo, Payload: HistoryUndo{ID: "abc"}}.Encode()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var decoded struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if decoded.Type != "history_undo" || decoded.Data["id"] != "abc" {
		t.Errorf("Unexpected envelope: %s", data)
	}

	data, err = Event{Type: TypeCanvasClear}.Encode()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(data) != `{"type":"canvas_clear"}` {
		t.Errorf("Expected bare canvas_clear, got %s", data)
	}
}
