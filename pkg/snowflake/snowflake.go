package snowflake

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

// Epoch is the custom epoch of generated ids, 2021-01-01T00:00:00Z in ms.
const Epoch int64 = 1609459200000

const (
	nodeBits  = 10
	stepBits  = 12
	nodeMax   = -1 ^ (-1 << nodeBits)
	stepMask  = -1 ^ (-1 << stepBits)
	timeShift = nodeBits + stepBits
	nodeShift = stepBits
)

var (
	ErrInvalidNode = errors.New("node number must be between 0 and " + strconv.Itoa(nodeMax))
)

// ID is a 63-bit identifier: 41 bits of milliseconds since Epoch, 10 bits
// of node and 12 bits of per-millisecond sequence.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id ID) Time() time.Time {
	return time.UnixMilli(int64(id)>>timeShift + Epoch)
}

func (id ID) Node() int64 {
	return int64(id) >> nodeShift & nodeMax
}

func (id ID) Step() int64 {
	return int64(id) & stepMask
}

// Node generates ids unique to one node number.
type Node struct {
	mu   sync.Mutex
	time int64
	node int64
	step int64
	now  func() time.Time
}

func NewNode(node int64) (*Node, error) {
	if node < 0 || node > nodeMax {
		return nil, ErrInvalidNode
	}

	return &Node{
		node: node,
		now:  time.Now,
	}, nil
}

// Generate returns the next id. Ids of one Node strictly increase, even if
// the wall clock moves backwards.
func (n *Node) Generate() ID {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.millis()
	if now < n.time {
		now = n.time
	}

	if now == n.time {
		n.step = (n.step + 1) & stepMask
		if n.step == 0 {
			// sequence exhausted for this millisecond
			for now <= n.time {
				now = n.millis()
				if now < n.time {
					now = n.time + 1
				}
			}
		}
	} else {
		n.step = 0
	}

	n.time = now
	return ID(now<<timeShift | n.node<<nodeShift | n.step)
}

func (n *Node) millis() int64 {
	return n.now().UnixMilli() - Epoch
}
