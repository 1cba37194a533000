package organizer

import (
	"testing"

	"filewatch/internal/config"
)

func TestNewChain(t *testing.T) {
	chain, err := NewChain([]config.ProcessorConfig{
		{Type: config.ProcessorMove, TargetFolder: "/target"},
		{Type: config.ProcessorRename, DupPaths: []string{"/a"}, Recursive: true},
		{Type: config.ProcessorMove, TargetFolder: "/other"},
	}, nil)
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}

	names := []string{MoveName, RenameName, MoveName}
	if len(chain) != len(names) {
		t.Fatalf("Expected %d processors, got %d", len(names), len(chain))
	}
	for i, name := range names {
		if chain[i].Name() != name {
			t.Errorf("chain[%d].Name() = %q, want %q", i, chain[i].Name(), name)
		}
	}

	if move, ok := chain[0].(*MoveProcessor); !ok || move.TargetFolder() != "/target" {
		t.Errorf("Unexpected first processor: %#v", chain[0])
	}
	if rename, ok := chain[1].(*RenameProcessor); !ok || rename.DupPaths()[0] != "/a" {
		t.Errorf("Unexpected second processor: %#v", chain[1])
	}
}

func TestNewChain_UnknownType(t *testing.T) {
	if _, err := NewChain([]config.ProcessorConfig{{Type: "copy"}}, nil); err == nil {
		t.Error("Expected error for unknown processor type")
	}
}
