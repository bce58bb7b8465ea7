// Package all registers every game with the catalog.
package all

import (
	_ "party_server/internal/game/ballrace"
	_ "party_server/internal/game/clicker"
	_ "party_server/internal/game/drawing"
	_ "party_server/internal/game/liar"
	_ "party_server/internal/game/memory"
	_ "party_server/internal/game/quiz"
	_ "party_server/internal/game/racing"
	_ "party_server/internal/game/sumgrid"
	_ "party_server/internal/game/tictactoe"
)
