package httptransport

import "expvar"

var (
	metricSessionCreateTotal  = expvar.NewInt("session_create_total")
	metricSessionCreateErrors = expvar.NewInt("session_create_errors_total")

	metricFrameSubmitTotal  = expvar.NewInt("frame_submit_total")
	metricFrameSubmitErrors = expvar.NewInt("frame_submit_errors_total")

	metricSSEConnectionsTotal  = expvar.NewInt("sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("sse_connections_active")

	metricLeaderboardQueryTotal  = expvar.NewInt("leaderboard_query_total")
	metricLeaderboardQueryErrors = expvar.NewInt("leaderboard_query_errors_total")
)
