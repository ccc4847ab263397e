package registry

import "testing"

func TestDeviceValidate(t *testing.T) {
	device := Device{
		ID:           "dev-1",
		CompanyID:    "company-a",
		SerialNumber: "SN-1",
		Model:        "ThinkPad T14",
		Status:       StatusReceived,
	}
	if err := device.Validate(); err != nil {
		t.Fatalf("valid device rejected: %v", err)
	}

	broken := device
	broken.Status = "melted"
	if err := broken.Validate(); err == nil {
		t.Fatal("expected unknown status error")
	}

	broken = device
	broken.SerialNumber = ""
	if err := broken.Validate(); err == nil {
		t.Fatal("expected empty serial error")
	}
}

func TestPatchApply_AllowListOnly(t *testing.T) {
	device := Device{
		ID:        "dev-1",
		CompanyID: "company-a",
		Status:    StatusReceived,
		Model:     "Latitude 5420",
	}

	location := "shelf-3"
	model := "Latitude 5430"
	ram := 16
	patch := Patch{CurrentLocation: &location, Model: &model, RAMSizeGB: &ram}
	patch.Apply(&device)

	if device.CurrentLocation != "shelf-3" || device.Model != "Latitude 5430" || device.RAMSizeGB != 16 {
		t.Fatalf("patch not applied: %+v", device)
	}
	if device.Status != StatusReceived {
		t.Fatal("patch must not touch status")
	}
	if device.CompanyID != "company-a" {
		t.Fatal("patch must not touch company scope")
	}
}

func TestPatchApply_UnsetFieldsUntouched(t *testing.T) {
	device := Device{Notes: "screen flicker", AssignedTo: "emp-9"}
	Patch{}.Apply(&device)
	if device.Notes != "screen flicker" || device.AssignedTo != "emp-9" {
		t.Fatalf("empty patch mutated device: %+v", device)
	}
}
