package main

import (
	"testing"

	"github.com/companyzero/voicememo/internal/assert"
)

func TestColorDefnToLGStyle(t *testing.T) {
	_, err := colorDefnToLGStyle("bold:cyan:na")
	assert.NilErr(t, err)

	_, err = colorDefnToLGStyle("underline,reverse:white:black")
	assert.NilErr(t, err)

	// Wrong number of fields.
	_, err = colorDefnToLGStyle("bold:cyan")
	assert.NonNilErr(t, err)

	// Unknown attribute and color.
	_, err = colorDefnToLGStyle("blink:cyan:na")
	assert.NonNilErr(t, err)
	_, err = colorDefnToLGStyle("bold:chartreuse:na")
	assert.NonNilErr(t, err)
}
