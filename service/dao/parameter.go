package dao

// Parameter names understood by the record accessors.
const (
	ParamStatus     = "Status"
	ParamSessionID  = "SessionID"
	ParamTaskID     = "TaskID"
	ParamWorkflowID = "WorkflowID"
	ParamParentID   = "ParentID"
)

type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
