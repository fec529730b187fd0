package entity

import "testing"

func TestStepDetailMerge(t *testing.T) {
	d := StepDetail{"notified": "true", "last_notes": "v1"}

	d = d.Merge(StepDetail{"last_notes": "v2", "extra": "x"})

	if d["notified"] != "true" {
		t.Error("existing key dropped by merge")
	}
	if d["last_notes"] != "v2" {
		t.Errorf("last_notes = %q, want v2", d["last_notes"])
	}
	if d["extra"] != "x" {
		t.Error("new key not merged")
	}
}

func TestStepDetailMerge_NilReceiver(t *testing.T) {
	var d StepDetail

	d = d.Merge(StepDetail{"k": "v"})

	if d == nil || d["k"] != "v" {
		t.Error("merge into nil detail lost the entry")
	}
}

func TestStepDetailFlags(t *testing.T) {
	d := StepDetail{}
	if d.Flag("sent") {
		t.Error("unset flag reported true")
	}
	d.SetFlag("sent")
	if !d.Flag("sent") {
		t.Error("set flag reported false")
	}
}
