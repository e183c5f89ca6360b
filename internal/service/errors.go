package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	Gone                = 410
	InternalServerError = 500
	ServiceUnavailable  = 503
)

var (
	ErrParamInvalid     = errors.New("参数错误")
	ErrEmptyMessage     = errors.New("消息内容不能为空")
	ErrMediaRefRequired = errors.New("媒体消息缺少文件引用")
	ErrTargetInvalid    = errors.New("目标用户无效")
	ErrMessageNotFound  = errors.New("消息不存在或已被清除")
	ErrNotParticipant   = errors.New("无权操作该消息")
	ErrSnapshotOnly     = errors.New("该消息不是阅后即焚快照")
	ErrSnapshotExpired  = errors.New("快照已销毁")
	ErrVaultPassword    = errors.New("保险库密码错误")
	ErrVaultNotEnabled  = errors.New("尚未设置保险库密码")
	ErrMessageNoMedia   = errors.New("该消息没有可转存的媒体")
	ErrActionDuplicate  = errors.New("重复操作")
	UnauthorizedError   = errors.New("权限不足")
	UnavailableError    = errors.New("服务暂时不可用，请稍后重试")
	UnExpectedError     = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:     BadRequest,
	ErrEmptyMessage:     BadRequest,
	ErrMediaRefRequired: BadRequest,
	ErrTargetInvalid:    BadRequest,
	ErrMessageNotFound:  NotFound,
	ErrNotParticipant:   Unauthorized,
	ErrSnapshotOnly:     BadRequest,
	ErrSnapshotExpired:  Gone,
	ErrVaultPassword:    Unauthorized,
	ErrVaultNotEnabled:  Unauthorized,
	ErrMessageNoMedia:   BadRequest,
	ErrActionDuplicate:  BadRequest,
	UnauthorizedError:   Unauthorized,
	UnavailableError:    ServiceUnavailable,
	UnExpectedError:     InternalServerError,
}
