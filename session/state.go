package session

import "fmt"

type State uint32

const (
	Closed State = iota
	Opened
	Abandoned
	Wait
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Opened:
		return "Opened"
	case Abandoned:
		return "Abandoned"
	case Wait:
		return "Wait"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}
