package lpl

import (
	"regexp"
	"strings"
)

// blockType selects the grammar applied to lines inside a frame.
type blockType int

const (
	blockFile blockType = iota
	blockClass
	blockPersistentFields
	blockTransientFields
	blockLocalFields
	blockConditions
	blockDerivedFields
	blockRelations
	blockRelation
	blockSets
	blockRuleBlocks
	blockFieldRules
	blockActions
	blockAction
	blockParameters
	blockActionLocalFields
	blockActionRuleBlocks
	blockActionRules
	blockActionInert
	blockStateCycles
	blockStateCycle
	blockUI
	blockListActions
	blockOther
	blockLeaf
	blockKeyField
	blockKeyContext
	blockRepresentation
)

var blockNames = map[blockType]string{
	blockFile:              "File",
	blockClass:             "ClassRoot",
	blockPersistentFields:  "PersistentFields",
	blockTransientFields:   "TransientFields",
	blockLocalFields:       "LocalFields",
	blockConditions:        "Conditions",
	blockDerivedFields:     "DerivedFields",
	blockRelations:         "Relations",
	blockRelation:          "Relation",
	blockSets:              "Sets",
	blockRuleBlocks:        "RuleBlocks",
	blockFieldRules:        "FieldRules",
	blockActions:           "Actions",
	blockAction:            "Action",
	blockParameters:        "Parameters",
	blockActionLocalFields: "ActionLocalFields",
	blockActionRuleBlocks:  "ActionRuleBlocks",
	blockActionRules:       "ActionRules",
	blockActionInert:       "ActionSection",
	blockStateCycles:       "StateCycles",
	blockStateCycle:        "StateCycle",
	blockUI:                "UI",
	blockListActions:       "ListActions",
	blockOther:             "OtherSection",
	blockLeaf:              "Leaf",
	blockKeyField:          "KeyField",
	blockKeyContext:        "KeyContext",
	blockRepresentation:    "Representation",
}

func (b blockType) String() string {
	if name, ok := blockNames[b]; ok {
		return name
	}
	return "Unknown"
}

// Heading vocabulary directly under a BusinessClass.
const (
	HeadingPersistentFields      = "Persistent Fields"
	HeadingTransientFields       = "Transient Fields"
	HeadingLocalFields           = "Local Fields"
	HeadingConditions            = "Conditions"
	HeadingDerivedFields         = "Derived Fields"
	HeadingRelations             = "Relations"
	HeadingSets                  = "Sets"
	HeadingRuleBlocks            = "Rule Blocks"
	HeadingFieldRules            = "Field Rules"
	HeadingTranslationFieldRules = "Translation Field Rules"
	HeadingActions               = "Actions"
	HeadingStateCycles           = "StateCycles"
)

// Heading vocabulary inside an action.
const (
	HeadingParameters     = "Parameters"
	HeadingParameterRules = "Parameter Rules"
	HeadingActionRules    = "Action Rules"
)

var classHeadings = map[string]blockType{
	HeadingPersistentFields:      blockPersistentFields,
	HeadingTransientFields:       blockTransientFields,
	HeadingLocalFields:           blockLocalFields,
	HeadingConditions:            blockConditions,
	HeadingDerivedFields:         blockDerivedFields,
	HeadingRelations:             blockRelations,
	HeadingSets:                  blockSets,
	HeadingRuleBlocks:            blockRuleBlocks,
	HeadingFieldRules:            blockFieldRules,
	HeadingTranslationFieldRules: blockFieldRules,
	HeadingActions:               blockActions,
	HeadingStateCycles:           blockStateCycles,
}

var actionHeadings = map[string]blockType{
	HeadingParameters:     blockParameters,
	HeadingParameterRules: blockActionInert,
	HeadingLocalFields:    blockActionLocalFields,
	HeadingFieldRules:     blockActionInert,
	HeadingRuleBlocks:     blockActionRuleBlocks,
	HeadingActionRules:    blockActionRules,
}

// UIContainerTypes are the view types that open a UI scope. Any type name
// ending in "Message" is also a UI container.
var UIContainerTypes = []string{
	"List",
	"CardView",
	"Form",
	"ActionForm",
	"CompositeForm",
	"SummaryForm",
	"Navigation",
	"Menu",
	"Page",
	"Wizard",
}

// DerivedFieldTypes are the computed-field declarations recognized under
// Derived Fields.
var DerivedFieldTypes = []string{
	"Aggregation",
	"ConditionalField",
	"ComputeField",
	"InstanceCount",
	"StringField",
	"MessageField",
	"LabelField",
	"DerivedField",
	"NativeField",
	"Sum",
	"Count",
	"Average",
	"Minimum",
	"Maximum",
}

// RelationCardinalities introduce a relation's target.
var RelationCardinalities = []string{
	"one-to-one",
	"one-to-many",
	"one-to-optional-one",
	"many-to-one",
}

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

func headingPattern(vocab map[string]blockType) *regexp.Regexp {
	words := make([]string, 0, len(vocab))
	for w := range vocab {
		words = append(words, w)
	}
	// longest first so "Translation Field Rules" beats "Field Rules"
	for i := 1; i < len(words); i++ {
		for j := i; j > 0 && len(words[j]) > len(words[j-1]); j-- {
			words[j], words[j-1] = words[j-1], words[j]
		}
	}
	return regexp.MustCompile(`^(` + alternation(words) + `)$`)
}

func isUIContainerType(name string) bool {
	if strings.HasSuffix(name, "Message") {
		return true
	}
	for _, t := range UIContainerTypes {
		if t == name {
			return true
		}
	}
	return false
}

func isDerivedFieldType(name string) bool {
	for _, t := range DerivedFieldTypes {
		if t == name {
			return true
		}
	}
	return false
}

var (
	reClass          = regexp.MustCompile(`^(\w+)\s+is\s+(?:a|an)\s+BusinessClass$`)
	reKeyField       = regexp.MustCompile(`^(\w+)\s+is\s+(?:a|an)\s+KeyField$`)
	reClassHeading   = headingPattern(classHeadings)
	reActionHeading  = headingPattern(actionHeadings)
	reOtherHeading   = regexp.MustCompile(`^([A-Z][A-Za-z0-9]*(?: [A-Za-z0-9]+)*)$`)
	reHasIs          = regexp.MustCompile(`\bis\b`)
	reUIContainer    = regexp.MustCompile(`^(\w+)\s+is\s+(?:a|an)\s+(\w+)$`)
	reField          = regexp.MustCompile(`^(\w+)(?:\s+is\s+(?:(?:a|an|like)\s+)?(\w+).*)?$`)
	reCondition      = regexp.MustCompile(`^(\w+)(?:\s+is\s+(?:a|an)\s+\w*Condition)?$`)
	reDerivedField   = regexp.MustCompile(`^(\w+)\s+is\s+(?:a|an)\s+(\w+)\b.*$`)
	reRelation       = regexp.MustCompile(`^(\w+)(?:\s+is\s+(?:a|an)\s+(\w+)\s+set)?$`)
	reRelationTarget = regexp.MustCompile(`^(?:` + alternation(RelationCardinalities) + `)\s+(\w+)(?:\.(\w+))?\b`)
	reSet            = regexp.MustCompile(`^(\w+)(?:\s+is\s+(?:a|an)\s+Set)?$`)
	reName           = regexp.MustCompile(`^(\w+)$`)
	reAction         = regexp.MustCompile(`^(\w+)\s+is\s+(?:a|an)\s+(?:\w+\s+)?(?:Request)?Action$`)
	reRestricted     = regexp.MustCompile(`^restricted$`)
	reValidWhen      = regexp.MustCompile(`^valid\s+when\s+(.+)$`)
	reInvokeImport   = regexp.MustCompile(`^invoke\s+(Create|Import)(?:\s+(\w+))?\b`)
	reStateCycle     = regexp.MustCompile(`^(\w+)(?:\s+is\s+(?:a|an)\s+StateCycle)?$`)
	reState          = regexp.MustCompile(`^(\w+)\s+is\s+(?:a|an)\s+State$`)
	reListActions    = regexp.MustCompile(`^Actions$`)
	reBoundAction    = regexp.MustCompile(`^(?:action|Action)\s+is\s+(\w+)$`)
	reListRestricted = regexp.MustCompile(`^(\w+)\s+is\s+restricted$`)
	reListDisabled   = regexp.MustCompile(`^(\w+)\s+is\s+disabled$`)
	reListValidWhen  = regexp.MustCompile(`^(\w+)\s+valid\s+when\b`)
	reKeyClass       = regexp.MustCompile(`^business\s+class\s+is\s+(\w+)$`)
	reKeyContext     = regexp.MustCompile(`^Context$`)
	reRepresentation = regexp.MustCompile(`^Representation$`)
	reAnyText        = regexp.MustCompile(`^(.+)$`)
)

// lineMatcher is one grammar rule. apply returns a child frame when the
// line declares a new scope, or nil when the line only had side effects.
type lineMatcher struct {
	name    string
	pattern *regexp.Regexp
	reject  *regexp.Regexp
	accept  func(m []string) bool
	// indexed children are attributed to the class's per-file index.
	indexed bool
	// anyDepth rules also run for lines deeper than the content indent.
	anyDepth bool
	apply    func(p *parser, ln sourceLine, m []string) *frame
}

func (lm lineMatcher) match(ln sourceLine) []string {
	m := lm.pattern.FindStringSubmatch(ln.body)
	if m == nil {
		return nil
	}
	if lm.reject != nil && lm.reject.MatchString(ln.body) {
		return nil
	}
	if lm.accept != nil && !lm.accept(m) {
		return nil
	}
	return m
}

var grammar map[blockType][]lineMatcher

func init() {
	uiContainer := lineMatcher{
		name:    "ui-container",
		pattern: reUIContainer,
		accept:  func(m []string) bool { return isUIContainerType(m[2]) },
		indexed: true,
		apply:   openUIContainer,
	}
	nestedUI := uiContainer
	nestedUI.indexed = false

	grammar = map[blockType][]lineMatcher{
		blockFile: {
			{name: "business-class", pattern: reClass, apply: openClass},
			{name: "key-field", pattern: reKeyField, apply: openKeyField},
		},
		blockClass: {
			{name: "class-heading", pattern: reClassHeading, apply: openClassSection},
			uiContainer,
			{name: "other-heading", pattern: reOtherHeading, reject: reHasIs, apply: openOtherSection},
		},
		blockPersistentFields: {
			{name: "persistent-field", pattern: reField, indexed: true, apply: fieldOpener(KindField, StoragePersistent)},
		},
		blockTransientFields: {
			{name: "transient-field", pattern: reField, indexed: true, apply: fieldOpener(KindProperty, StorageTransient)},
		},
		blockLocalFields: {
			{name: "local-field", pattern: reField, indexed: true, apply: fieldOpener(KindVariable, StorageLocal)},
		},
		blockConditions: {
			{name: "condition", pattern: reCondition, indexed: true, apply: fieldOpener(KindBoolean, StorageCondition)},
		},
		blockDerivedFields: {
			{
				name:    "derived-field",
				pattern: reDerivedField,
				accept:  func(m []string) bool { return isDerivedFieldType(m[2]) },
				indexed: true,
				apply:   fieldOpener(KindFunction, StorageDerived),
			},
		},
		blockRelations: {
			{name: "relation", pattern: reRelation, indexed: true, apply: openRelation},
		},
		blockRelation: {
			{name: "relation-target", pattern: reRelationTarget, apply: setRelationTarget},
		},
		blockSets: {
			{name: "set", pattern: reSet, indexed: true, apply: openSet},
		},
		blockRuleBlocks: {
			{name: "rule-block", pattern: reName, indexed: true, apply: openRuleBlock},
		},
		blockFieldRules: {},
		blockActions: {
			{name: "action", pattern: reAction, indexed: true, apply: openAction},
		},
		blockAction: {
			{name: "action-heading", pattern: reActionHeading, apply: openActionSection},
			{name: "restricted", pattern: reRestricted, apply: markRestricted},
			{name: "valid-when", pattern: reValidWhen, apply: markValidWhen},
		},
		blockParameters: {
			{name: "parameter", pattern: reField, apply: actionFieldOpener(true)},
		},
		blockActionLocalFields: {
			{name: "action-local-field", pattern: reField, apply: actionFieldOpener(false)},
		},
		blockActionRuleBlocks: {
			{name: "action-rule-block", pattern: reName, apply: openActionRuleBlock},
		},
		blockActionRules: {
			{name: "invoke-import", pattern: reInvokeImport, anyDepth: true, apply: markImportSource},
		},
		blockActionInert: {},
		blockStateCycles: {
			{name: "state-cycle", pattern: reStateCycle, indexed: true, apply: openStateCycle},
		},
		blockStateCycle: {
			{name: "state", pattern: reState, apply: openState},
		},
		blockUI: {
			{name: "list-actions", pattern: reListActions, apply: openListActions},
			{name: "bound-action", pattern: reBoundAction, apply: bindFormAction},
			nestedUI,
		},
		blockListActions: {
			{name: "list-action-restricted", pattern: reListRestricted, apply: listActionSetter(ActionRestricted)},
			{name: "list-action-disabled", pattern: reListDisabled, apply: listActionSetter(ActionDisabled)},
			{name: "list-action-valid-when", pattern: reListValidWhen, apply: listActionSetter(ActionConditional)},
			{name: "list-action", pattern: reName, apply: listActionSetter(ActionEnabled)},
		},
		blockOther: {
			uiContainer,
		},
		blockLeaf: {},
		blockKeyField: {
			{name: "key-class", pattern: reKeyClass, apply: setKeyClass},
			{name: "key-context", pattern: reKeyContext, apply: openKeyContext},
			{name: "key-representation", pattern: reRepresentation, apply: openRepresentation},
		},
		blockKeyContext: {
			{name: "context-field", pattern: reField, apply: openContextField},
		},
		blockRepresentation: {
			{name: "representation-text", pattern: reAnyText, anyDepth: true, apply: appendRepresentation},
		},
	}
}
