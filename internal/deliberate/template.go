package deliberate

// #region template-types
// TemplateDimension is one weighted criterion in a template.
type TemplateDimension struct {
	Name     string  `json:"name"`
	Question string  `json:"question"`
	Weight   float64 `json:"weight"`
}

// Template defines the dimensions a session is expected to evaluate and
// which stakeholder roles must be represented. Templates guide questions;
// they never determine answers.
type Template struct {
	Name                     string              `json:"name"`
	Description              string              `json:"description"`
	Dimensions               []TemplateDimension `json:"dimensions"`
	RequiredStakeholderTypes []string            `json:"required_stakeholder_types,omitempty"`
}

// #endregion template-types

// #region builtins
// BuiltinTemplate returns a named built-in template.
func BuiltinTemplate(name string) (Template, bool) {
	t, ok := builtinTemplates[name]
	return t, ok
}

var builtinTemplates = map[string]Template{
	"governance_dimensions": {
		Name:        "Governance Dimensions",
		Description: "Standard five-dimension review for structural changes",
		Dimensions: []TemplateDimension{
			{Name: "legibility", Question: "Can humans understand the resulting structure?", Weight: 0.25},
			{Name: "reversibility", Question: "Can changes be undone if problems emerge?", Weight: 0.25},
			{Name: "auditability", Question: "Can we trace why decisions were made?", Weight: 0.20},
			{Name: "governance", Question: "Who has authority over the system?", Weight: 0.15},
			{Name: "paradigm_safety", Question: "Does this create risks if widely adopted?", Weight: 0.15},
		},
		RequiredStakeholderTypes: []string{"technical", "ethical"},
	},
	"self_modification": {
		Name:        "Self-Modification Review",
		Description: "For systems that modify their own behavior",
		Dimensions: []TemplateDimension{
			{Name: "scope_limitation", Question: "Are modifications bounded in scope?", Weight: 0.30},
			{Name: "human_veto", Question: "Can humans override any modification?", Weight: 0.30},
			{Name: "rollback_capability", Question: "Can we return to previous state?", Weight: 0.25},
			{Name: "transparency", Question: "Are modifications visible and logged?", Weight: 0.15},
		},
		RequiredStakeholderTypes: []string{"technical"},
	},
	"minimal": {
		Name:        "Minimal Review",
		Description: "Quick review for low-stakes decisions",
		Dimensions: []TemplateDimension{
			{Name: "risk_level", Question: "What is the worst-case outcome?", Weight: 0.5},
			{Name: "reversibility", Question: "Can this be undone?", Weight: 0.5},
		},
	},
}

// #endregion builtins
