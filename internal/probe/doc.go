// Package probe checks that values survive the trip from Go to a live
// server and back.
//
// For every Case the runner adapts the value, sends
//
//	SELECT (<literal>)::<cast>
//
// and decodes the single result column, comparing it with the expected
// value. The parentheses matter: "::" binds tighter than unary minus, so
// -9223372036854775808::int8 would overflow.
//
// Results can be fanned out to Recorders as they are produced: History
// keeps them in the local SQLite cache and Metrics forwards them to
// InfluxDB.
//
//	runner := probe.NewRunner(conn, probe.NewHistory(db, key), probe.NewMetrics(influx, key))
//	results, err := runner.Run(ctx, probe.Cases(reg.FloatPolicy()))
package probe
