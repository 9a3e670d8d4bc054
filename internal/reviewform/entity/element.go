package entity

import (
	"fmt"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
)

// ElementType is the input control a review form element renders as.
type ElementType int

const (
	ElementSmallTextField ElementType = 1
	ElementTextField      ElementType = 2
	ElementTextarea       ElementType = 3
	ElementCheckboxes     ElementType = 4
	ElementRadioButtons   ElementType = 5
	ElementDropDownBox    ElementType = 6
)

// Valid reports whether t is a known element type.
func (t ElementType) Valid() bool {
	return t >= ElementSmallTextField && t <= ElementDropDownBox
}

// MultipleResponses reports whether the element offers a fixed set of responses.
func (t ElementType) MultipleResponses() bool {
	switch t {
	case ElementCheckboxes, ElementRadioButtons, ElementDropDownBox:
		return true
	}
	return false
}

func (t ElementType) String() string {
	switch t {
	case ElementSmallTextField:
		return "small_text_field"
	case ElementTextField:
		return "text_field"
	case ElementTextarea:
		return "textarea"
	case ElementCheckboxes:
		return "checkboxes"
	case ElementRadioButtons:
		return "radio_buttons"
	case ElementDropDownBox:
		return "drop_down_box"
	}
	return fmt.Sprintf("element(%d)", int(t))
}

// Element is one question of a review form.
type Element struct {
	ID           int64
	ReviewFormID int64
	Seq          float64
	ElementType  ElementType
	Required     bool
	Included     bool

	Question    dao.LocalizedText
	Description dao.LocalizedText
	// PossibleResponses maps locale to the ordered response labels.
	PossibleResponses map[string][]string
}
