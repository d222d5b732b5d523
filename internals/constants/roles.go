package constants

import "fmt"

const (
	RoleAdmin       = "admin"
	RoleTrainer     = "trainer"
	RoleEvaluator   = "evaluator"
	RoleParticipant = "participant"
)

var (
	AllRoles = []string{
		RoleAdmin,
		RoleTrainer,
		RoleEvaluator,
		RoleParticipant,
	}

	StaffRoles = []string{
		RoleAdmin,
		RoleTrainer,
	}

	EvaluatorAndAbove = []string{
		RoleAdmin,
		RoleTrainer,
		RoleEvaluator,
	}

	AdminOnly = []string{RoleAdmin}
)

const (
	ErrOnlyStaffCanAccess     = "only admins or trainers may access %s"
	ErrOnlyAdminsCanAccess    = "only admins may access %s"
	ErrOnlyEvaluatorCanAccess = "only evaluators, trainers or admins may access %s"
)

func RoleErrorStaff(feature string) string {
	return fmt.Sprintf(ErrOnlyStaffCanAccess, feature)
}

func RoleErrorAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyAdminsCanAccess, feature)
}

func RoleErrorEvaluator(feature string) string {
	return fmt.Sprintf(ErrOnlyEvaluatorCanAccess, feature)
}

func IsValidRole(r string) bool {
	for _, x := range AllRoles {
		if x == r {
			return true
		}
	}
	return false
}
