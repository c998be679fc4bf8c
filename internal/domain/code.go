package domain

import (
	"fmt"
	"math/rand"
	"time"
)

const (
	CodePrefixForm      = "FRM"
	CodePrefixField     = "FLD"
	CodePrefixFieldType = "FTY"
	CodePrefixProfile   = "PRF"
)

// NewCode builds a human-readable code such as FRM101714_3305_0427.
func NewCode(prefix string) string {
	now := time.Now()
	return fmt.Sprintf("%s%s_%04d", prefix, now.Format("010215_0405"), rand.Intn(10000))
}
