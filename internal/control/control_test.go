package control

import "testing"

func TestResolveDefaultsToLoopback(t *testing.T) {
	resolved, err := Resolve(ResolveParams{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	defer resolved.Close()

	if resolved.Provider.Name() == "" {
		t.Error("expected a non-empty provider name")
	}
	if resolved.Info == nil {
		t.Fatal("expected a resolved fi_info")
	}
	if resolved.Domain == nil {
		t.Error("expected an open domain")
	}
}

func TestResolveHonoursEndpointTypeHint(t *testing.T) {
	resolved, err := Resolve(ResolveParams{EPType: 3})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	defer resolved.Close()

	if resolved.Info.EPType != 3 {
		t.Errorf("expected EPType hint to be honoured, got %d", resolved.Info.EPType)
	}
}

func TestResolveCloseIsClean(t *testing.T) {
	resolved, err := Resolve(ResolveParams{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := resolved.Close(); err != nil {
		t.Errorf("expected clean close, got %v", err)
	}
}
