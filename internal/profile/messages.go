package profile

import (
	"fmt"
	"strings"
)

// Action identifies a kind of build step for console messages
type Action string

const (
	ActionArchive          Action = "archive"
	ActionAssemble         Action = "assemble"
	ActionAssembleCPP      Action = "assemble-cpp"
	ActionCompileC         Action = "compile-c"
	ActionCompileCXX       Action = "compile-c++"
	ActionCompileSwift     Action = "compile-swift"
	ActionLink             Action = "link"
	ActionIndex            Action = "index"
	ActionCompileSharedC   Action = "compile-shared-c"
	ActionCompileSharedCXX Action = "compile-shared-c++"
	ActionLinkShared       Action = "link-shared"
	ActionTest             Action = "test"
)

// TargetPlaceholder is substituted with the action's target path
const TargetPlaceholder = "$TARGET"

var actionLabels = map[Action]string{
	ActionArchive:          "Archiving",
	ActionAssemble:         "Assembling",
	ActionAssembleCPP:      "Assembling",
	ActionCompileC:         "Building (C)",
	ActionCompileCXX:       "Building (C++)",
	ActionCompileSwift:     "Building (Swift)",
	ActionLink:             "Linking",
	ActionIndex:            "Indexing",
	ActionCompileSharedC:   "Building (C, Shared)",
	ActionCompileSharedCXX: "Building (C++, Shared)",
	ActionLinkShared:       "Linking (Shared)",
	ActionTest:             "Testing",
}

// Actions returns every action kind that has a message template
func Actions() []Action {
	return []Action{
		ActionArchive, ActionAssemble, ActionAssembleCPP, ActionCompileC, ActionCompileCXX,
		ActionCompileSwift, ActionLink, ActionIndex, ActionCompileSharedC, ActionCompileSharedCXX,
		ActionLinkShared, ActionTest,
	}
}

// Label returns the human readable name of an action
func (a Action) Label() string {
	if label, ok := actionLabels[a]; ok {
		return label
	}

	return string(a)
}

// Template builds the console template for an action label. Succinct
// templates right-align the label in 25 columns; verbose ones center it in
// brackets.
func Template(label string, succinct bool) string {
	if succinct {
		return fmt.Sprintf("%25s: %s", label, TargetPlaceholder)
	}

	return fmt.Sprintf("  [%s] %s", center(label, 6), TargetPlaceholder)
}

func messageTemplates(succinct bool) map[Action]string {
	messages := make(map[Action]string, len(actionLabels))
	for action, label := range actionLabels {
		messages[action] = Template(label, succinct)
	}

	return messages
}

// center pads s to width, putting the odd space on the right
func center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}

	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
