package client

import (
	"encoding/json"

	"tictactoe-client/internal/models"
)

const boardField = "board"

// decodeResponse decodes a 2xx payload into out. Some endpoints deliver the
// board as a string holding the JSON matrix; that string is parsed and put
// back as a real matrix before the document is decoded. Payloads without a
// string board are decoded as-is.
func decodeResponse(data []byte, out any) error {
	data, err := normalizeBoard(data)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindDecoding, Cause: err}
	}
	return nil
}

func normalizeBoard(data []byte) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return data, nil
	}
	raw, ok := doc[boardField]
	if !ok {
		return data, nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return data, nil
	}

	board, err := ParseBoardString(encoded)
	if err != nil {
		return nil, err
	}
	matrix, err := json.Marshal(board)
	if err != nil {
		return nil, &Error{Kind: KindInvalidBoardFormat, Cause: err}
	}
	doc[boardField] = matrix

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, &Error{Kind: KindInvalidBoardFormat, Cause: err}
	}
	return out, nil
}

// ParseBoardString parses a JSON array-of-arrays delivered inside a string.
func ParseBoardString(s string) (models.Board, error) {
	var board models.Board
	if err := json.Unmarshal([]byte(s), &board); err != nil {
		return nil, &Error{Kind: KindInvalidBoardFormat, Cause: err}
	}
	if board == nil {
		return nil, &Error{Kind: KindInvalidBoardFormat, Message: "board is null"}
	}
	return board, nil
}
