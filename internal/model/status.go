package model

import "strings"

// ==================== 运单状态机 ====================

// ShipmentStatus 运单状态
type ShipmentStatus string

const (
	StatusCreated          ShipmentStatus = "CREATED"
	StatusReceivedAtOrigin ShipmentStatus = "RECEIVED_AT_ORIGIN"
	StatusInTransit        ShipmentStatus = "IN_TRANSIT"
	StatusArrivedAtHub     ShipmentStatus = "ARRIVED_AT_HUB"
	StatusOutForDelivery   ShipmentStatus = "OUT_FOR_DELIVERY"
	StatusReadyForPickup   ShipmentStatus = "READY_FOR_PICKUP"
	StatusDelivered        ShipmentStatus = "DELIVERED"
	StatusFailed           ShipmentStatus = "FAILED"
	StatusReturned         ShipmentStatus = "RETURNED"
)

// AllShipmentStatuses 全部状态（按流程顺序）
var AllShipmentStatuses = []ShipmentStatus{
	StatusCreated, StatusReceivedAtOrigin, StatusInTransit, StatusArrivedAtHub,
	StatusOutForDelivery, StatusReadyForPickup, StatusDelivered, StatusFailed, StatusReturned,
}

// statusRank 正向流程中的位置，FAILED/RETURNED 不在主线上
var statusRank = map[ShipmentStatus]int{
	StatusCreated:          0,
	StatusReceivedAtOrigin: 1,
	StatusInTransit:        2,
	StatusArrivedAtHub:     3,
	StatusOutForDelivery:   4,
	StatusReadyForPickup:   4,
	StatusDelivered:        5,
}

func (s ShipmentStatus) IsValid() bool {
	switch s {
	case StatusFailed, StatusReturned:
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// IsTerminal DELIVERED / FAILED / RETURNED 为终态
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusReturned
}

// ParseShipmentStatus 解析状态（大小写不敏感）
func ParseShipmentStatus(s string) (ShipmentStatus, bool) {
	st := ShipmentStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.IsValid()
}

// IsLegalTransition 状态迁移是否合法
//
//   - 终态不可再迁移
//   - CREATED 只能由创建产生
//   - FAILED / RETURNED 可由任意非终态进入
//   - 主线上只能前进（允许跳级），同级的 OUT_FOR_DELIVERY 与 READY_FOR_PICKUP 可互换
//   - 非终态写入相同状态视为一次打卡（更新位置）
func IsLegalTransition(from, to ShipmentStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from.IsTerminal() || to == StatusCreated {
		return false
	}
	if to == StatusFailed || to == StatusReturned {
		return true
	}
	return statusRank[to] >= statusRank[from]
}

// ==================== COD 状态 ====================

// CodStatus 代收货款状态
type CodStatus string

const (
	CodNone      CodStatus = "NONE"
	CodPending   CodStatus = "PENDING"
	CodCollected CodStatus = "COLLECTED"
	CodRemitted  CodStatus = "REMITTED"
)

var codRank = map[CodStatus]int{
	CodPending:   1,
	CodCollected: 2,
	CodRemitted:  3,
}

func (c CodStatus) IsValid() bool {
	if c == CodNone {
		return true
	}
	_, ok := codRank[c]
	return ok
}

// ParseCodStatus 解析 COD 状态，TRANSFERRED 视为 REMITTED
func ParseCodStatus(s string) (CodStatus, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "TRANSFERRED" {
		return CodRemitted, true
	}
	c := CodStatus(v)
	return c, c.IsValid()
}

// InitialCodStatus 创建时的 COD 状态：金额 > 0 为 PENDING，否则 NONE
func InitialCodStatus(amount *int64) CodStatus {
	if amount != nil && *amount > 0 {
		return CodPending
	}
	return CodNone
}

// IsLegalCodTransition COD 状态只能前进（允许跳级），NONE 既不可进入也不可离开
func IsLegalCodTransition(from, to CodStatus) bool {
	if from == CodNone || to == CodNone {
		return false
	}
	fr, ok1 := codRank[from]
	tr, ok2 := codRank[to]
	if !ok1 || !ok2 {
		return false
	}
	return tr > fr
}

// CanForceCod 管理员强制修正时仍需满足：有 COD 金额的运单不可变为 NONE，无金额的运单保持 NONE
func CanForceCod(from, to CodStatus) bool {
	return from != CodNone && to != CodNone && to.IsValid()
}
