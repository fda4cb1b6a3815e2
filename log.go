package ufs2

import "github.com/sirupsen/logrus"

// logFields tags every Engine log line with the operation and, when
// known, the cylinder group or inode involved (spec §1 "Logging").
func logFields(op string, ino InodeNumber, cg int) logrus.Fields {
	f := logrus.Fields{"op": op}
	if ino != 0 {
		f["ino"] = ino
	}
	if cg >= 0 {
		f["cg"] = cg
	}
	return f
}
