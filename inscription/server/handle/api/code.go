package api

type Code = int

const (
	CodeSuccess       Code = 0
	CodeError500      Code = 500
	CodeParamsInvalid Code = 10000
	CodeNotFound      Code = 10001
	CodeDbError       Code = 10002
	CodeRpcError      Code = 10003
	CodeBusy          Code = 10004
)
