package liar

import "party_server/internal/game"

// JamTurnOrder pushes the turn cursor past the end of the order.
func JamTurnOrder(s game.Session) {
	g := s.(*Game)
	g.turnIndex = len(g.turnOrder)
}
