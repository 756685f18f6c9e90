package page

// ResultKind 提取结果的种类
type ResultKind int

const (
	// ResultOk 提取成功，携带条目
	ResultOk ResultKind = iota
	// ResultRetry 页面内容不完整（如被反爬拦截），引擎应重新调度请求
	ResultRetry
	// ResultFail 提取失败，属于真正的错误
	ResultFail
)

// Result 提取步骤的带标签结果
//
// 页面对象不通过抛出异常来表达"请重试"，而是返回 Retry 结果，
// 由引擎决定是否重新调度。领域层的重试语义与真实故障由此分离。
type Result struct {
	kind   ResultKind
	item   any
	reason string
	err    error
}

// OK 创建成功结果
func OK(item any) Result {
	return Result{kind: ResultOk, item: item}
}

// Retry 创建重试结果
func Retry(reason string) Result {
	return Result{kind: ResultRetry, reason: reason}
}

// Fail 创建失败结果
func Fail(err error) Result {
	return Result{kind: ResultFail, err: err}
}

// Kind 返回结果种类
func (r Result) Kind() ResultKind { return r.kind }

// IsOk 判断提取是否成功
func (r Result) IsOk() bool { return r.kind == ResultOk }

// Item 返回提取的条目，仅在 IsOk 时有效
func (r Result) Item() any { return r.item }

// Reason 返回重试原因，仅在 ResultRetry 时有效
func (r Result) Reason() string { return r.reason }

// Err 返回失败错误，仅在 ResultFail 时有效
func (r Result) Err() error { return r.err }
