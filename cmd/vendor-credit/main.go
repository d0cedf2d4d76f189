// vendor-credit applies vendor credits to bills and derives their journal.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/vendor-credit --business-id <id> apply --credit 12 --bill 31=300 --bill 32=1,200.50
package main

func main() {
	Execute()
}
