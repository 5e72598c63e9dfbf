package project

// Role is an orchestration discipline a stage runs under.
type Role string

const (
	RolePlanner  Role = "planner"
	RoleExecutor Role = "executor"
	RoleCritic   Role = "critic"
	RoleAuditor  Role = "auditor"
)

var roleDescriptions = map[Role]string{
	RolePlanner:  "Minimal plan + success criteria. No tools.",
	RoleExecutor: "Execute plan, create artifacts, persist them.",
	RoleCritic:   "Validate consistency/completeness; demand fixes.",
	RoleAuditor:  "Secrets hygiene; policy enforcement; block unsafe actions.",
}

// Roles returns every role in orchestration order.
func Roles() []Role {
	return []Role{RolePlanner, RoleExecutor, RoleCritic, RoleAuditor}
}

// Description returns a one-line summary of the role.
func (r Role) Description() string {
	return roleDescriptions[r]
}

// RoleFor maps a run kind to the role that performs it.
func RoleFor(kind RunKind) Role {
	switch kind {
	case RunBrainstorm, RunResearch:
		return RolePlanner
	case RunSynthesize:
		return RoleCritic
	default:
		return RoleExecutor
	}
}
