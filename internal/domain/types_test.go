package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestCardJSONRoundTrip(t *testing.T) {
	c := Card{
		CordLength: 600,
		Distances:  []float64{100, 200},
		Things: []Thing{
			{ID: "soldier", Name: "Soldier", OffsetX: 3, OffsetY: -2, Shape: SizedObject{Height: 1.8, Width: 0.5}},
			{ID: "c1", Name: "Reticle", Shape: MilCircle{MilDiameter: 5}},
		},
	}
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Card
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, c)
	}
}

func TestThingWireShape(t *testing.T) {
	b, err := json.Marshal(Thing{ID: "c1", Name: "R", Shape: MilCircle{MilDiameter: 2}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"type":"milCircle"`) || !strings.Contains(s, `"milDiameter":2`) {
		t.Fatalf("unexpected circle json: %s", s)
	}
	if strings.Contains(s, "height") || strings.Contains(s, "imageDataUrl") {
		t.Fatalf("circle must not carry sized fields: %s", s)
	}
	b, _ = json.Marshal(Thing{ID: "t", Name: "T", Shape: SizedObject{Height: 1, Width: 2}})
	if !strings.Contains(string(b), `"imageDataUrl":""`) || strings.Contains(string(b), "type") {
		t.Fatalf("unexpected sized json: %s", b)
	}
}

func TestThingVariantByPresence(t *testing.T) {
	var th Thing
	if err := json.Unmarshal([]byte(`{"id":"a","name":"A","milDiameter":3}`), &th); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c, ok := th.Shape.(MilCircle); !ok || c.MilDiameter != 3 {
		t.Fatalf("expected circle from milDiameter, got %#v", th.Shape)
	}
	if err := json.Unmarshal([]byte(`{"id":"b","name":"B","height":2,"width":1}`), &th); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s, ok := th.Shape.(SizedObject); !ok || s.Height != 2 || s.ImageDataURL != "" || th.OffsetX != 0 {
		t.Fatalf("expected sized object with defaults, got %#v", th)
	}
}

func TestMarshalWithoutShapeFails(t *testing.T) {
	if _, err := json.Marshal(Thing{ID: "x"}); err == nil {
		t.Fatalf("expected error for thing without shape")
	}
}

func TestNewThings(t *testing.T) {
	a, b := NewSizedObject(), NewSizedObject()
	if a.ID == b.ID || !strings.HasPrefix(a.ID, "thing_") {
		t.Fatalf("unexpected ids %q %q", a.ID, b.ID)
	}
	if s := a.Shape.(SizedObject); s.Height != 1.8 || s.Width != 1.0 {
		t.Fatalf("unexpected default size %+v", s)
	}
	c := NewMilCircle()
	if !strings.HasPrefix(c.ID, "circle_") || !c.IsCircle() || c.Shape.(MilCircle).MilDiameter != 5 {
		t.Fatalf("unexpected default circle %+v", c)
	}
}

func TestParseDistances(t *testing.T) {
	got := ParseDistances(" 100, 200;300  0 -5 abc 450.5 ")
	want := []float64{100, 200, 300, 450.5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseDistances = %v, want %v", got, want)
	}
	if got := ParseDistances(" , ;"); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
	if got := ParseDistances("NaN Inf -Inf +Inf 250"); !reflect.DeepEqual(got, []float64{250}) {
		t.Fatalf("non-finite distances must be skipped, got %v", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := Default()
	c.Append(NewSizedObject())
	cp := c.Clone()
	cp.Distances[0] = 1
	cp.Things[0].Name = "changed"
	if c.Distances[0] != 100 || c.Things[0].Name != DefaultObjectName {
		t.Fatalf("clone shares storage with source")
	}
}

func TestRemoveAndFind(t *testing.T) {
	c := Default()
	a, b := NewSizedObject(), NewMilCircle()
	c.Append(a)
	c.Append(b)
	if c.Remove("missing") {
		t.Fatalf("removing unknown id must be a no-op")
	}
	if !c.Remove(a.ID) || len(c.Things) != 1 || c.FirstID() != b.ID {
		t.Fatalf("unexpected things after remove: %+v", c.Things)
	}
	if c.Find(a.ID) != nil || c.Find(b.ID) == nil {
		t.Fatalf("find mismatch")
	}
	c.Find(b.ID).OffsetX = 7
	if c.Things[0].OffsetX != 7 {
		t.Fatalf("Find must point into the card")
	}
}

func TestValidate(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default card invalid: %v", err)
	}
	c.Things = []Thing{{ID: "a", Name: "A", Shape: MilCircle{MilDiameter: 1}}, {ID: "a", Name: "B", Shape: MilCircle{MilDiameter: 1}}}
	if err := c.Validate(); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	c.Things = nil
	c.CordLength = 0
	if err := c.Validate(); !errors.Is(err, ErrCordLength) {
		t.Fatalf("expected cord length error, got %v", err)
	}
}
