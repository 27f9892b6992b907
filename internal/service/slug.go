package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// uniqueSlug turns text into a URL slug and appends -2, -3, ... until exists
// reports it free. exceptID lets a record keep its own slug on update.
func uniqueSlug(text, fallback string, exceptID uuid.UUID, exists func(string, uuid.UUID) (bool, error)) (string, error) {
	base := slug.Make(text)
	if base == "" {
		base = fallback
	}

	candidate := base
	for n := 2; ; n++ {
		taken, err := exists(candidate, exceptID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
