// internal/query/actions_test.go
package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/solatis/gfb/internal/types"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name     string
		want     Action
		add      string
		remove   string
		property string
	}{
		{"archive", ActionArchive, "", LabelInbox, "shouldArchive"},
		{"mark-read", ActionMarkRead, "", LabelUnread, "shouldMarkAsRead"},
		{"never-spam", ActionNeverSpam, "", LabelSpam, "shouldNeverSpam"},
		{"never-important", ActionNeverImportant, "", LabelImportant, "shouldNeverMarkAsImportant"},
		{"always-important", ActionAlwaysImportant, LabelImportant, "", "shouldAlwaysMarkAsImportant"},
		{"delete-email", ActionDeleteEmail, LabelTrash, "", "shouldDelete"},
		{"mark-starred", ActionMarkStarred, LabelStarred, "", "shouldStar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.name)
			if err != nil {
				t.Fatalf("ParseAction(%q) error = %v, want nil", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseAction(%q) = %v, want %v", tt.name, got, tt.want)
			}
			if got.String() != tt.name {
				t.Errorf("String() = %s, want %s", got.String(), tt.name)
			}
			add, remove := got.LabelEffect()
			if add != tt.add || remove != tt.remove {
				t.Errorf("LabelEffect() = (%q, %q), want (%q, %q)", add, remove, tt.add, tt.remove)
			}
			if got.XMLProperty() != tt.property {
				t.Errorf("XMLProperty() = %s, want %s", got.XMLProperty(), tt.property)
			}
		})
	}
}

func TestParseAction_CaseInsensitive(t *testing.T) {
	got, err := ParseAction("  Archive ")
	if err != nil || got != ActionArchive {
		t.Errorf("ParseAction() = %v, %v, want archive", got, err)
	}
}

func TestParseActions_Unknown(t *testing.T) {
	_, err := ParseActions([]string{"archive", "forward"})
	if !errors.Is(err, types.ErrUnknownAction) {
		t.Fatalf("ParseActions() error = %v, want ErrUnknownAction", err)
	}
	var unknown *types.UnknownActionError
	if !errors.As(err, &unknown) || unknown.Name != "forward" {
		t.Errorf("ParseActions() error = %v, want UnknownActionError for forward", err)
	}
}

func TestEncodeLabelActions(t *testing.T) {
	got := EncodeLabelActions([]Action{ActionArchive, ActionMarkStarred, ActionMarkRead}, "")
	want := LabelActions{
		AddLabelIDs:    []string{LabelStarred},
		RemoveLabelIDs: []string{LabelInbox, LabelUnread},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EncodeLabelActions() = %+v, want %+v", got, want)
	}

	if got := EncodeLabelActions(nil, ""); got.AddLabelIDs != nil || got.RemoveLabelIDs != nil {
		t.Errorf("EncodeLabelActions(nil) = %+v, want empty", got)
	}
}

func TestParseActions_Repeated(t *testing.T) {
	actions, err := ParseActions([]string{"archive", "mark-read", "Archive", "mark-read"})
	if err != nil {
		t.Fatalf("ParseActions() error = %v, want nil", err)
	}
	if want := []Action{ActionArchive, ActionMarkRead}; !reflect.DeepEqual(actions, want) {
		t.Errorf("ParseActions() = %v, want %v", actions, want)
	}

	got := EncodeLabelActions(actions, "")
	if want := []string{LabelInbox, LabelUnread}; !reflect.DeepEqual(got.RemoveLabelIDs, want) {
		t.Errorf("RemoveLabelIDs = %v, want %v", got.RemoveLabelIDs, want)
	}
}
