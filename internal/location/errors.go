package location

import "errors"

var (
	ErrInvalidTable        = errors.New("invalid location table")
	ErrUnknownProvince     = errors.New("unknown province")
	ErrUnknownDistrict     = errors.New("unknown district")
	ErrUnknownMunicipality = errors.New("unknown municipality")
	ErrInvalidPin          = errors.New("pin coordinates out of range")
)
