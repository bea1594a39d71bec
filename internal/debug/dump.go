package debug

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Column headers and separator of the dump. Tools parse this output, so
// these are fixed.
const (
	coroutineHeader = "\nCOROUTINE  state                                      current                                  created\n"
	channelHeader   = "CHANNEL  msgs/max    senders/receivers                          refs  done  created\n"
	separator       = "------------------------------------------------------------------------------------------------------------------------\n"
)

// Dump writes the state of every live coroutine and channel to the
// diagnostic stream. Write errors are ignored.
func (r *Registry) Dump() {
	if r == nil {
		return
	}
	r.DumpTo(r.w)
}

// DumpTo writes the same report as Dump to w.
func (r *Registry) DumpTo(w io.Writer) {
	if r == nil || w == nil {
		return
	}
	var sb strings.Builder

	sb.WriteString(coroutineHeader)
	sb.WriteString(separator)
	for id := range r.crList.all(r.crLinks) {
		cr := r.crs[id]
		label := cr.label
		if id == r.running {
			label = "---"
		}
		created := cr.created
		if created == "" {
			created = "<main>"
		}
		fmt.Fprintf(&sb, "%-8s   %-42s %-40s %s\n",
			"{"+strconv.Itoa(int(id))+"}",
			r.describeOp(cr),
			label,
			created)
	}
	sb.WriteString("\n")

	if !r.chanList.empty() {
		sb.WriteString(channelHeader)
		sb.WriteString(separator)
		for id := range r.chanList.all(r.chanLinks) {
			ch := r.chans[id]
			fmt.Fprintf(&sb, "%-8s %-11s ",
				"<"+strconv.Itoa(int(id))+">",
				strconv.Itoa(ch.Items)+"/"+strconv.Itoa(ch.Capacity))
			done := "no"
			if ch.Done {
				done = "yes"
			}
			fmt.Fprintf(&sb, "%-42s %-5d %-5s %s\n",
				r.waitSummary(ch),
				ch.Refs,
				done,
				ch.created)
		}
		sb.WriteString("\n")
	}

	// Best-effort write - observability must not disturb the program
	_, _ = io.WriteString(w, sb.String()) //nolint:errcheck
}

func (r *Registry) describeOp(cr *coroutine) string {
	switch op := cr.op.(type) {
	case Sleep:
		return "msleep()"
	case FdWait:
		return fmt.Sprintf("fdwait(%d, %s)", op.FD, op.Events)
	case Send:
		return describeClauses("chs", op.Clauses)
	case Recv:
		return describeClauses("chr", op.Clauses)
	case Choose:
		return describeClauses("choose", op.Clauses)
	default:
		if cr.id == r.running {
			return "RUNNING"
		}
		return "ready"
	}
}

func describeClauses(name string, clauses []Clause) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, c := range clauses {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(c.Dir.String())
		sb.WriteByte('<')
		sb.WriteString(strconv.Itoa(int(c.Chan)))
		sb.WriteByte('>')
	}
	sb.WriteByte(')')
	return sb.String()
}

// waitSummary lists the coroutines queued on a channel. Only one side is
// shown: senders when there are any, receivers otherwise.
func (r *Registry) waitSummary(ch *Channel) string {
	var (
		prefix string
		list   *idList[ClauseID]
	)
	switch {
	case !ch.senders.empty():
		prefix, list = "s:", &ch.senders
	case !ch.receivers.empty():
		prefix, list = "r:", &ch.receivers
	default:
		return " "
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	first := true
	for id := range list.all(r.clauseLinks) {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString("{" + strconv.Itoa(int(r.clauses[id].cr)) + "}")
	}
	return sb.String()
}
