package service

import "errors"

var (
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrEventNotFound      = errors.New("simulation event not found")
	ErrEventNotCompleted  = errors.New("evaluations are only created for completed events")
	ErrEvaluationExists   = errors.New("event already has an evaluation")
	ErrFinalized          = errors.New("evaluation is finalized")
	ErrCriteriaLocked     = errors.New("criteria cannot change once scores are recorded")
	ErrInvalidCriteria    = errors.New("criteria need unique names, a positive weight and a positive max score")
	ErrNotAttended        = errors.New("participant did not attend the event")
	ErrUnknownCriterion   = errors.New("unknown criterion")
	ErrScoreOutOfRange    = errors.New("score is outside the criterion range")
	ErrDuplicateCriterion = errors.New("criterion is scored more than once")
	ErrResultNotFound     = errors.New("evaluation result not found")
)
