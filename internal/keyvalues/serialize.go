package keyvalues

import (
	"io"
	"strings"
)

// Serialize writes the node tree back out in canonical form: quoted keys
// and values, tab indentation, blocks with the brace on its own line. The
// root's own key is not written when it is unnamed.
func Serialize(w io.Writer, root *KV) error {
	sw := &stickyWriter{w: w}
	if root.Key == "" {
		for _, c := range root.Children {
			writeNode(sw, c, 0)
		}
	} else {
		writeNode(sw, root, 0)
	}
	return sw.err
}

// Text renders the tree to a string.
func Text(root *KV) string {
	var sb strings.Builder
	Serialize(&sb, root) //nolint:errcheck // strings.Builder never fails
	return sb.String()
}

func writeNode(sw *stickyWriter, kv *KV, depth int) {
	indent := strings.Repeat("\t", depth)
	if !kv.block {
		sw.writeString(indent + quote(kv.Key) + " " + quote(kv.Value) + "\n")
		return
	}
	sw.writeString(indent + quote(kv.Key) + "\n" + indent + "{\n")
	for _, c := range kv.Children {
		writeNode(sw, c, depth+1)
	}
	sw.writeString(indent + "}\n")
}

func quote(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n", "\t", "\\t")
	return "\"" + r.Replace(s) + "\""
}

type stickyWriter struct {
	w   io.Writer
	err error
}

func (sw *stickyWriter) writeString(s string) {
	if sw.err != nil {
		return
	}
	_, sw.err = io.WriteString(sw.w, s)
}
