package executor

import (
	"fmt"
	"strings"

	"github.com/edwingeng/deque"
)

// job 已完成的后台作业记录
// 沙箱内 & 同步执行，作业表只保留完成状态供 jobs 查询
type job struct {
	id       int
	command  string
	exitCode int
}

// jobTable 先进先出的作业记录表
type jobTable struct {
	entries deque.Deque
	nextID  int
}

func newJobTable() *jobTable {
	return &jobTable{entries: deque.NewDeque(), nextID: 1}
}

// add 登记一个已完成的作业，返回作业号
func (t *jobTable) add(command string, exitCode int) int {
	id := t.nextID
	t.nextID++
	t.entries.PushBack(&job{id: id, command: command, exitCode: exitCode})
	// 只保留最近的记录，防止长脚本无限增长
	for t.entries.Len() > 64 {
		t.entries.PopFront()
	}
	return id
}

// list 按登记顺序输出作业表
func (t *jobTable) list() string {
	var sb strings.Builder
	n := t.entries.Len()
	for i := 0; i < n; i++ {
		j := t.entries.Front().(*job)
		t.entries.PopFront()
		t.entries.PushBack(j)
		status := "Done"
		if j.exitCode != 0 {
			status = fmt.Sprintf("Exit %d", j.exitCode)
		}
		fmt.Fprintf(&sb, "[%d]   %-24s %s\n", j.id, status, j.command)
	}
	return sb.String()
}
