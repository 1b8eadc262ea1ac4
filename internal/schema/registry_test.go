package schema

import "testing"

func TestRegistryCoversEveryKind(t *testing.T) {
	registry := NewRegistry()

	kinds := []Kind{
		KindContact, KindConversation, KindMessage, KindAIPrompt,
		KindPipeline, KindPipelineStage, KindCalendarEvent,
		KindDocument, KindIntegration, KindSettings,
	}
	for _, kind := range kinds {
		if _, ok := registry.Create(kind); !ok {
			t.Errorf("missing create schema for %q", kind)
		}
		if _, ok := registry.Update(kind); !ok {
			t.Errorf("missing update schema for %q", kind)
		}
	}
	if got := len(registry.Kinds()); got != len(kinds) {
		t.Fatalf("registry holds %d kinds, want %d", got, len(kinds))
	}
}

func TestForUpdateDerivation(t *testing.T) {
	registry := NewRegistry()

	s, _ := registry.Update(KindMessage)
	for _, field := range s.Fields {
		if field.Name == "conversation_id" {
			t.Fatal("immutable conversation_id must not survive into the update schema")
		}
		if field.Required {
			t.Errorf("update field %q still required", field.Name)
		}
		if field.Default != nil {
			t.Errorf("update field %q still carries default %v", field.Name, field.Default)
		}
	}
}

func TestForUpdateKeepsCrossChecks(t *testing.T) {
	registry := NewRegistry()

	s, _ := registry.Update(KindCalendarEvent)
	if len(s.Checks) == 0 {
		t.Fatal("event window check lost during update derivation")
	}
}
