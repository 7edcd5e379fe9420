// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"path/filepath"
	"strings"

	"github.com/pdiddy/sheetdoc/pkg/types"
)

// topicSeparator splits a region name into topic and suffix.
const topicSeparator = "_"

// Topic returns the grouping key of a region name: everything before the
// first separator, or the whole name when there is none. A name starting
// with the separator keeps its full text so it never maps to ".docx".
//
//	ACL_1  -> ACL
//	ACLN_1 -> ACLN
//	X_Y_Z  -> X
func Topic(regionName string) string {
	topic, _, _ := strings.Cut(regionName, topicSeparator)
	if topic == "" {
		return regionName
	}
	return topic
}

// DocumentPath returns the output document for a region name.
func DocumentPath(outputDir, regionName string) string {
	return filepath.Join(outputDir, Topic(regionName)+types.DocumentExt)
}
