package postgres

import "github.com/jackc/pgx/v5/pgconn"

var pgconnUniqueViolation = pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
