package mongo

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsWriteConflict(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"write conflict", mongo.CommandError{Code: 112, Name: "WriteConflict"}, true},
		{"wrapped write conflict", mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 112}}}, true},
		{"duplicate key", mongo.CommandError{Code: 11000, Name: "DuplicateKey"}, false},
		{"plain error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isWriteConflict(tc.err); got != tc.want {
				t.Errorf("isWriteConflict(%v): got %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
