package controller

import (
	"strconv"

	"github.com/gerickson-labs/hlxgo/model"
)

func parseIdentifier(text []byte) (model.Identifier, error) {
	n, err := strconv.ParseUint(string(text), 10, 16)
	if err != nil {
		return 0, err
	}
	return model.Identifier(n), nil
}

func parseInt8(text []byte) (int8, error) {
	n, err := strconv.ParseInt(string(text), 10, 8)
	if err != nil {
		return 0, err
	}
	return int8(n), nil
}

func parseUint16(text []byte) (uint16, error) {
	n, err := strconv.ParseUint(string(text), 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

func parseUint8(text []byte) (uint8, error) {
	n, err := strconv.ParseUint(string(text), 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

func parseBandIndex(text []byte) (model.EqualizerBandIndex, error) {
	n, err := strconv.ParseUint(string(text), 10, 8)
	if err != nil {
		return 0, err
	}
	return model.EqualizerBandIndex(n), nil
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}
