package service

import "errors"

var ErrLessonSetMismatch = errors.New("lesson_ids must list every lesson of the module exactly once")
