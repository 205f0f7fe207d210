// Package document builds the final combined document and the optional
// crawl report, and writes them to their destination.
package document

import (
	"fmt"
	"strings"

	"github.com/masahif/docfold/internal/model"
)

// CommonSectionsHeading opens the appendix of shared blocks.
const CommonSectionsHeading = "# Common Sections"

// Assemble renders pages in the given order. Each page with an anchor gets
// a heading carrying the anchor id and its canonical URL, followed by its
// blocks separated by blank lines. Common blocks follow in one appendix.
func Assemble(unique []model.PageBlocks, common []string, anchors *model.AnchorMap) string {
	var b strings.Builder

	for _, page := range unique {
		if anchor, ok := anchors.Get(page.URL); ok && anchor != "" {
			fmt.Fprintf(&b, "# [Page] <a id=\"%s\">%s</a>\n\n", anchor, page.URL)
		}
		b.WriteString(strings.Join(page.Blocks, "\n\n"))
		b.WriteString("\n\n")
	}

	if len(common) > 0 {
		b.WriteString(CommonSectionsHeading + "\n\n")
		b.WriteString(strings.Join(common, "\n\n"))
		b.WriteString("\n")
	}

	return b.String()
}
