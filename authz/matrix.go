package authz

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hashim1213/soluly-business-suite-sub004/models"
)

// Module is one of the suite's permission-bearing modules
type Module string

const (
	ModuleDashboard Module = "dashboard"
	ModuleProjects  Module = "projects"
	ModuleTickets   Module = "tickets"
	ModuleForms     Module = "forms"
	ModuleCRM       Module = "crm"
	ModuleSettings  Module = "settings"
	ModuleFinance   Module = "finance"
)

// Action is a per-module permission action
type Action string

const (
	ActionView        Action = "view"
	ActionCreate      Action = "create"
	ActionEdit        Action = "edit"
	ActionDelete      Action = "delete"
	ActionManageOrg   Action = "manage_org"
	ActionViewAmounts Action = "view_amounts"
)

// Modules is the fixed enumeration of known modules
var Modules = []Module{
	ModuleDashboard,
	ModuleProjects,
	ModuleTickets,
	ModuleForms,
	ModuleCRM,
	ModuleSettings,
	ModuleFinance,
}

// Actions is the fixed enumeration of known actions
var Actions = []Action{
	ActionView,
	ActionCreate,
	ActionEdit,
	ActionDelete,
	ActionManageOrg,
	ActionViewAmounts,
}

// Matrix is a per-module, per-action grant table. It is a total
// function over the module/action enumeration: any pair without an
// explicit true grant evaluates to false. Lookups never rely on
// absent-key behavior being falsy; Allowed makes the default explicit.
type Matrix map[Module]map[Action]bool

// Allowed reports whether the module/action pair carries an explicit
// grant. Unknown modules and unknown actions are denied.
func (m Matrix) Allowed(module Module, action Action) bool {
	if m == nil {
		return false
	}
	actions, ok := m[module]
	if !ok {
		return false
	}
	granted, ok := actions[action]
	if !ok {
		return false
	}
	return granted
}

// Clone returns a deep copy of the matrix
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for module, actions := range m {
		copied := make(map[Action]bool, len(actions))
		for action, granted := range actions {
			copied[action] = granted
		}
		out[module] = copied
	}
	return out
}

//go:embed roles.yaml
var roleDefaultsYAML []byte

// roleDefaults maps each member role to its default permission matrix,
// loaded once from the embedded YAML seed.
var roleDefaults map[models.MemberRole]Matrix

func init() {
	defaults, err := parseRoleDefaults(roleDefaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("authz: invalid embedded role defaults: %v", err))
	}
	roleDefaults = defaults
}

func parseRoleDefaults(data []byte) (map[models.MemberRole]Matrix, error) {
	var raw map[string]map[string]map[string]bool
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse role defaults: %w", err)
	}

	defaults := make(map[models.MemberRole]Matrix, len(raw))
	for roleName, modules := range raw {
		role := models.MemberRole(roleName)
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role %q in role defaults", roleName)
		}
		matrix := make(Matrix, len(modules))
		for moduleName, actions := range modules {
			moduleActions := make(map[Action]bool, len(actions))
			for actionName, granted := range actions {
				moduleActions[Action(actionName)] = granted
			}
			matrix[Module(moduleName)] = moduleActions
		}
		defaults[role] = matrix
	}
	return defaults, nil
}

// MatrixForRole returns the default permission matrix for a role. An
// unknown role gets an empty matrix, which denies everything.
func MatrixForRole(role models.MemberRole) Matrix {
	matrix, ok := roleDefaults[role]
	if !ok {
		return Matrix{}
	}
	return matrix.Clone()
}
