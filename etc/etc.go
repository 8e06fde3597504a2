package etc

import (
	"github.com/nrednav/cuid2"
)

// Gensym returns a fresh collision-resistant identifier for segments and
// history entries.
func Gensym() string {
	return cuid2.Generate()
}
