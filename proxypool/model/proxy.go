package model

import "fmt"

// Protocol 是候选代理声明的协议类型。
type Protocol string

const (
	Socks4 Protocol = "socks4"
	Socks5 Protocol = "socks5"
)

// Protocols lists every supported class in the order candidates are queued.
var Protocols = []Protocol{Socks4, Socks5}

// Candidate 是一个等待验证的代理端点，归一化之后不再修改。
type Candidate struct {
	Protocol Protocol
	Address  string // "host:port"
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s://%s", c.Protocol, c.Address)
}

// Verdict is the binary result of one probe.
type Verdict int

const (
	Bad Verdict = iota
	Good
)

func (v Verdict) String() string {
	if v == Good {
		return "good"
	}
	return "bad"
}

// Outcome 是单个候选的验证结果，由引擎生成一次，被结果文件与进度各消费一次。
type Outcome struct {
	Candidate Candidate
	Verdict   Verdict
	Err       error // reason for a bad verdict, only used for debug logging
}

// Stats 是一次运行的聚合计数。Done == Good + Bad 在每次更新后都成立。
type Stats struct {
	Total int
	Done  int
	Good  int
	Bad   int
}

// ResultFile returns the name of the file an outcome of protocol p with verdict v goes to.
func ResultFile(p Protocol, v Verdict) string {
	if v == Good {
		return string(p) + ".txt"
	}
	return "bad_" + string(p) + ".txt"
}
