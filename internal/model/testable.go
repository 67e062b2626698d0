package model

import "fmt"

// TestableKind enumerates the closed set of entities a test can attach to.
type TestableKind string

const (
	TestableCourse  TestableKind = "course"
	TestableChapter TestableKind = "chapter"
	TestableLesson  TestableKind = "lesson"
)

// TestableRef identifies the owning entity of a test as a tagged pair.
type TestableRef struct {
	Kind TestableKind `json:"kind" binding:"required"`
	ID   uint         `json:"id" binding:"required"`
}

func (r TestableRef) Valid() bool {
	switch r.Kind {
	case TestableCourse, TestableChapter, TestableLesson:
		return r.ID != 0
	}
	return false
}

func (r TestableRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}
