package debug

import "iter"

// nilLink terminates index-linked lists.
const nilLink = -1

// links are the intrusive prev/next handles a record carries for one list.
type links[K ~int] struct {
	prev K
	next K
}

func unlinked[K ~int]() links[K] {
	return links[K]{prev: K(nilLink), next: K(nilLink)}
}

// idList is a doubly linked list threaded through records addressed by
// integer handles. Records own their links; the list only knows the ends.
type idList[K ~int] struct {
	head K
	tail K
	n    int
}

func newIDList[K ~int]() idList[K] {
	return idList[K]{head: K(nilLink), tail: K(nilLink)}
}

func (l *idList[K]) empty() bool {
	return l.n == 0
}

func (l *idList[K]) len() int {
	return l.n
}

func (l *idList[K]) front() (K, bool) {
	if l.n == 0 {
		return K(nilLink), false
	}
	return l.head, true
}

func (l *idList[K]) pushBack(id K, at func(K) *links[K]) {
	ln := at(id)
	ln.prev = l.tail
	ln.next = K(nilLink)
	if l.tail != K(nilLink) {
		at(l.tail).next = id
	} else {
		l.head = id
	}
	l.tail = id
	l.n++
}

func (l *idList[K]) remove(id K, at func(K) *links[K]) {
	ln := at(id)
	if ln.prev != K(nilLink) {
		at(ln.prev).next = ln.next
	} else {
		l.head = ln.next
	}
	if ln.next != K(nilLink) {
		at(ln.next).prev = ln.prev
	} else {
		l.tail = ln.prev
	}
	*ln = unlinked[K]()
	l.n--
}

// all yields handles front to back. The list must not change during the walk.
func (l *idList[K]) all(at func(K) *links[K]) iter.Seq[K] {
	return func(yield func(K) bool) {
		for id := l.head; id != K(nilLink); id = at(id).next {
			if !yield(id) {
				return
			}
		}
	}
}
