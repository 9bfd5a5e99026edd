package ecore

import (
	"cmp"
	"fmt"

	"github.com/jacoelho/ecore/internal/saxdrive"
)

type xmlParseLimits struct {
	maxDepth int
	maxAttrs int
}

func resolveXMLParseLimits(maxDepth, maxAttrs int) (xmlParseLimits, error) {
	if maxDepth < 0 {
		return xmlParseLimits{}, fmt.Errorf("xml max depth must be >= 0")
	}
	if maxAttrs < 0 {
		return xmlParseLimits{}, fmt.Errorf("xml max attrs must be >= 0")
	}
	return xmlParseLimits{
		maxDepth: defaultXMLLimit(maxDepth, saxdrive.DefaultMaxDepth),
		maxAttrs: defaultXMLLimit(maxAttrs, saxdrive.DefaultMaxAttrs),
	}, nil
}

func defaultXMLLimit(value, fallback int) int {
	return cmp.Or(value, fallback)
}
