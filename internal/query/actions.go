// internal/query/actions.go
package query

import (
	"strings"

	"github.com/solatis/gfb/internal/types"
)

/*
 * Filter actions.
 *
 * Maps declared action names to their Gmail effect. Two renderings exist:
 *   - API: system label ids to add or remove (e.g. archive -> remove INBOX)
 *   - XML: the apps:property name set to "true" in a filter export
 */

// Action mirrors the recognized action names of a filter document.
type Action int

const (
	ActionUnspecified Action = iota
	ActionArchive
	ActionMarkRead
	ActionNeverSpam
	ActionNeverImportant
	ActionAlwaysImportant
	ActionDeleteEmail
	ActionMarkStarred
)

// Gmail system label ids used by actions.
const (
	LabelInbox     = "INBOX"
	LabelUnread    = "UNREAD"
	LabelSpam      = "SPAM"
	LabelImportant = "IMPORTANT"
	LabelTrash     = "TRASH"
	LabelStarred   = "STARRED"
)

// ParseAction converts a declared action name to an Action.
func ParseAction(name string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "archive":
		return ActionArchive, nil
	case "mark-read":
		return ActionMarkRead, nil
	case "never-spam":
		return ActionNeverSpam, nil
	case "never-important":
		return ActionNeverImportant, nil
	case "always-important":
		return ActionAlwaysImportant, nil
	case "delete-email":
		return ActionDeleteEmail, nil
	case "mark-starred":
		return ActionMarkStarred, nil
	default:
		return ActionUnspecified, &types.UnknownActionError{Name: name}
	}
}

// ParseActions converts all declared names, failing on the first unknown one.
// Repeated names keep their first position.
func ParseActions(names []string) ([]Action, error) {
	actions := make([]Action, 0, len(names))
	seen := make(map[Action]bool, len(names))
	for _, name := range names {
		a, err := ParseAction(name)
		if err != nil {
			return nil, err
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		actions = append(actions, a)
	}
	return actions, nil
}

// String returns the document name of the action.
func (a Action) String() string {
	switch a {
	case ActionArchive:
		return "archive"
	case ActionMarkRead:
		return "mark-read"
	case ActionNeverSpam:
		return "never-spam"
	case ActionNeverImportant:
		return "never-important"
	case ActionAlwaysImportant:
		return "always-important"
	case ActionDeleteEmail:
		return "delete-email"
	case ActionMarkStarred:
		return "mark-starred"
	default:
		return "unspecified"
	}
}

// LabelEffect returns the system label the action adds or removes.
// Exactly one of add/remove is non-empty for a recognized action.
func (a Action) LabelEffect() (add, remove string) {
	switch a {
	case ActionArchive:
		return "", LabelInbox
	case ActionMarkRead:
		return "", LabelUnread
	case ActionNeverSpam:
		return "", LabelSpam
	case ActionNeverImportant:
		return "", LabelImportant
	case ActionAlwaysImportant:
		return LabelImportant, ""
	case ActionDeleteEmail:
		return LabelTrash, ""
	case ActionMarkStarred:
		return LabelStarred, ""
	default:
		return "", ""
	}
}

// XMLProperty returns the apps:property name of the action in a filter export.
func (a Action) XMLProperty() string {
	switch a {
	case ActionArchive:
		return "shouldArchive"
	case ActionMarkRead:
		return "shouldMarkAsRead"
	case ActionNeverSpam:
		return "shouldNeverSpam"
	case ActionNeverImportant:
		return "shouldNeverMarkAsImportant"
	case ActionAlwaysImportant:
		return "shouldAlwaysMarkAsImportant"
	case ActionDeleteEmail:
		return "shouldDelete"
	case ActionMarkStarred:
		return "shouldStar"
	default:
		return ""
	}
}

// LabelActions is the action part of a Gmail API filter resource.
type LabelActions struct {
	AddLabelIDs    []string `json:"addLabelIds,omitempty"`
	RemoveLabelIDs []string `json:"removeLabelIds,omitempty"`
}

// EncodeLabelActions builds the API label effects of actions.
// labelID, when non-empty, is appended to the labels to add.
func EncodeLabelActions(actions []Action, labelID string) LabelActions {
	var out LabelActions
	for _, a := range actions {
		add, remove := a.LabelEffect()
		if add != "" {
			out.AddLabelIDs = append(out.AddLabelIDs, add)
		}
		if remove != "" {
			out.RemoveLabelIDs = append(out.RemoveLabelIDs, remove)
		}
	}
	if labelID != "" {
		out.AddLabelIDs = append(out.AddLabelIDs, labelID)
	}
	return out
}
