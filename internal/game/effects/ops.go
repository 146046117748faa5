package effects

import (
	"sort"
	"strings"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/compilegame/compile-server-go/internal/game/targeting"
)

type topSet map[state.Player][state.LaneCount]string

// tops records the uncovered card of every lane.
func (r *Run) tops() topSet {
	out := topSet{}
	for _, p := range [2]state.Player{state.PlayerOne, state.PlayerTwo} {
		var ids [state.LaneCount]string
		side := r.S.Side(p)
		for lane := 0; lane < state.LaneCount; lane++ {
			if top, ok := side.Top(lane); ok {
				ids[lane] = top.ID
			}
		}
		out[p] = ids
	}
	return out
}

// uncovers queues the middle text of every face-up card that became the top
// of its lane since before was taken. landed is the card that just arrived
// and is not uncovered by arriving.
func (r *Run) uncovers(before topSet, landed string) {
	for _, p := range r.S.Players() {
		side := r.S.Side(p)
		for lane := 0; lane < state.LaneCount; lane++ {
			top, ok := side.Top(lane)
			if !ok || top.ID == before[p][lane] || top.ID == landed || r.S.IsCommitted(top.ID) {
				continue
			}
			if !top.IsFaceUp {
				continue
			}
			r.Logf(p, top.Name(), "%s is uncovered", top.Name())
			r.middleText(top, p, lane, state.OriginUncover, cards.TriggerUncover)
		}
	}
}

// Flip turns one board card over. A card flipped face-up while uncovered
// resolves its middle text.
func (r *Run) Flip(pe state.PendingEffect, cardID string) bool {
	card, loc, ok := r.S.OnBoard(cardID)
	if !ok {
		return false
	}
	side := r.S.Side(loc.Owner)
	flipped := &side.Lanes[loc.Lane][loc.Index]
	flipped.IsFaceUp = !flipped.IsFaceUp

	anim := state.NewAnimation(state.AnimationFlip, loc.Owner)
	anim.CardID = cardID
	anim.FromLane, anim.ToLane = loc.Lane, loc.Lane
	anim.FromIndex, anim.ToIndex = loc.Index, loc.Index
	r.animate(anim)
	r.Recalculate()

	face := "face-down"
	if flipped.IsFaceUp {
		face = "face-up"
	}
	r.Logf(pe.Context.Actor, pe.SourceName, "%s flips %s %s", pe.Context.Actor, card.Name(), face)

	if flipped.IsFaceUp && r.S.IsUncovered(loc) {
		r.middleText(*flipped, loc.Owner, loc.Lane, state.OriginFlip, cards.TriggerFlip)
	}
	ev := rules.NewEvent(r.S, rules.EventOnFlip, pe.Context.Actor)
	ev.CardID = cardID
	ev.Lane = loc.Lane
	r.Raise(ev)
	return true
}

type boardHit struct {
	card state.PlayedCard
	loc  state.Location
}

// collect resolves card IDs to their board positions, highest index first so
// removal keeps the remaining indexes valid.
func (r *Run) collect(ids []string) []boardHit {
	var hits []boardHit
	for _, id := range ids {
		if card, loc, ok := r.S.OnBoard(id); ok {
			hits = append(hits, boardHit{card, loc})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i].loc, hits[j].loc
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Lane != b.Lane {
			return a.Lane < b.Lane
		}
		return a.Index > b.Index
	})
	return hits
}

func (r *Run) remove(hit boardHit) {
	side := r.S.Side(hit.loc.Owner)
	lane := side.Lanes[hit.loc.Lane]
	side.Lanes[hit.loc.Lane] = append(lane[:hit.loc.Index:hit.loc.Index], lane[hit.loc.Index+1:]...)
}

func names(hits []boardHit) string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[len(hits)-1-i] = h.card.Name()
	}
	return strings.Join(out, ", ")
}

// Delete moves board cards to their owners' discard piles in one step.
func (r *Run) Delete(pe state.PendingEffect, ids []string) int {
	return r.deleteAs(pe, ids, state.AnimationDelete)
}

func (r *Run) deleteAs(pe state.PendingEffect, ids []string, animType state.AnimationType) int {
	hits := r.collect(ids)
	if len(hits) == 0 {
		return 0
	}
	before := r.tops()
	for _, h := range hits {
		anim := state.NewAnimation(animType, h.loc.Owner)
		anim.CardID = h.card.ID
		anim.FromLane, anim.FromIndex = h.loc.Lane, h.loc.Index
		r.animate(anim)
	}
	for _, h := range hits {
		r.remove(h)
		side := r.S.Side(h.loc.Owner)
		side.Discard = append(side.Discard, h.card.Base())
	}
	r.Recalculate()
	r.Logf(pe.Context.Actor, pe.SourceName, "%s deletes %s", pe.Context.Actor, names(hits))

	ev := rules.NewEvent(r.S, rules.EventAfterDelete, pe.Context.Actor)
	ev.Count = len(hits)
	r.Raise(ev)
	r.uncovers(before, "")
	return len(hits)
}

// Return moves board cards to their owners' hands.
func (r *Run) Return(pe state.PendingEffect, ids []string) int {
	hits := r.collect(ids)
	if len(hits) == 0 {
		return 0
	}
	before := r.tops()
	for _, h := range hits {
		anim := state.NewAnimation(state.AnimationReturn, h.loc.Owner)
		anim.CardID = h.card.ID
		anim.FromLane, anim.FromIndex = h.loc.Lane, h.loc.Index
		r.animate(anim)
	}
	for _, h := range hits {
		r.remove(h)
		side := r.S.Side(h.loc.Owner)
		card := h.card
		card.IsFaceUp = false
		side.Hand = append(side.Hand, card)
	}
	r.Recalculate()
	r.Logf(pe.Context.Actor, pe.SourceName, "%s returns %s", pe.Context.Actor, names(hits))
	r.uncovers(before, "")
	return len(hits)
}

// ShiftLanes lists the lanes a board card may be shifted to by pe.
func (r *Run) ShiftLanes(pe state.PendingEffect, cardID string) []int {
	card, loc, ok := r.S.OnBoard(cardID)
	if !ok {
		return nil
	}
	return r.destinations(pe, loc.Owner, loc.Lane, card.Protocol)
}

// PlayLanes lists the lanes a card may be played into by pe.
func (r *Run) PlayLanes(pe state.PendingEffect, owner state.Player, card state.PlayedCard, faceUp bool) []int {
	lanes := r.destinations(pe, owner, state.NoLane, card.Protocol)
	if !faceUp {
		return lanes
	}
	out := lanes[:0]
	for _, lane := range lanes {
		if rules.CanPlayFaceUp(r.S, card, lane) {
			out = append(out, lane)
		}
	}
	return out
}

func (r *Run) destinations(pe state.PendingEffect, owner state.Player, fromLane int, protocol string) []int {
	side := r.S.Side(owner)
	src := r.sourceLane(pe)
	var lanes []int
	for lane := 0; lane < state.LaneCount; lane++ {
		info := targeting.LaneInfo{Index: lane, Protocol: side.Protocols[lane]}
		if pe.Effect.Destination.Allows(info, fromLane, src, protocol) {
			lanes = append(lanes, lane)
		}
	}
	return lanes
}

// covering queues the on_cover text of the card about to be covered in lane.
// It resolves before the incoming card lands.
func (r *Run) covering(owner state.Player, lane int) {
	top, ok := r.S.Side(owner).Top(lane)
	if !ok || !top.IsFaceUp || r.S.IsCommitted(top.ID) {
		return
	}
	def, ok := r.in.lookup.Card(top.Protocol, top.Value)
	if !ok {
		return
	}
	for _, eff := range def.Effects {
		if eff.Trigger != cards.TriggerOnCover || eff.Position == cards.PositionMiddle {
			continue
		}
		r.trigger(r.child(top, owner, lane, eff, state.OriginCover, cards.TriggerOnCover))
	}
}

// BeginShift commits a board card to a move. The card stays where it is until
// the land step resolves, after the covered card's on_cover text.
func (r *Run) BeginShift(pe state.PendingEffect, cardID string, toLane int) {
	card, loc, ok := r.S.OnBoard(cardID)
	if !ok {
		return
	}
	r.S.Commit(card.ID)
	r.covering(loc.Owner, toLane)
	r.trigger(r.land(pe, state.Transit{
		Card:      card,
		Owner:     loc.Owner,
		FromLane:  loc.Lane,
		ToLane:    toLane,
		HandIndex: state.NoLane,
		OnBoard:   true,
	}))
}

// BeginPlay commits a card that has left its hand or deck to a lane.
func (r *Run) BeginPlay(pe state.PendingEffect, owner state.Player, card state.PlayedCard, toLane, handIndex int) {
	r.S.Commit(card.ID)
	r.covering(owner, toLane)
	r.trigger(r.land(pe, state.Transit{
		Card:      card,
		Owner:     owner,
		FromLane:  state.NoLane,
		ToLane:    toLane,
		HandIndex: handIndex,
	}))
}

func (r *Run) land(pe state.PendingEffect, tr state.Transit) state.PendingEffect {
	return state.PendingEffect{
		SourceCardID: pe.SourceCardID,
		SourceName:   pe.SourceName,
		Lane:         tr.ToLane,
		Context:      pe.Context,
		Origin:       state.OriginSystem,
		Reactive:     r.frame.reactive,
		RootSeq:      r.frame.root,
		Depth:        r.frame.depth,
		System:       state.SystemLand,
		Player:       tr.Owner,
		Transit:      &tr,
	}
}

// Land finishes a committed move.
func (r *Run) Land(pe state.PendingEffect) {
	tr := pe.Transit
	if tr == nil {
		r.Flush()
		return
	}
	card := tr.Card
	before := r.tops()
	anim := state.NewAnimation(state.AnimationPlay, tr.Owner)
	anim.CardID = card.ID
	anim.HandIndex = tr.HandIndex
	if tr.OnBoard {
		current, loc, ok := r.S.OnBoard(card.ID)
		if !ok {
			r.S.Release(card.ID)
			r.Logf(tr.Owner, card.Name(), "%s left the board before it could move", card.Name())
			r.Flush()
			return
		}
		card = current
		anim.Type = state.AnimationShift
		anim.FromLane, anim.FromIndex = loc.Lane, loc.Index
		r.remove(boardHit{card, loc})
	}
	side := r.S.Side(tr.Owner)
	anim.ToLane, anim.ToIndex = tr.ToLane, len(side.Lanes[tr.ToLane])
	side.Lanes[tr.ToLane] = append(side.Lanes[tr.ToLane], card)
	r.S.Release(card.ID)
	r.animate(anim)
	r.Recalculate()

	face := "face-down"
	if card.IsFaceUp {
		face = "face-up"
	}
	name := card.Name()
	if !card.IsFaceUp && tr.Owner != r.S.Turn {
		name = "a card"
	}
	if tr.OnBoard {
		r.Logf(pe.Context.Actor, pe.SourceName, "%s shifts %s from line %d to line %d", pe.Context.Actor, name, tr.FromLane, tr.ToLane)
	} else {
		r.Logf(tr.Owner, pe.SourceName, "%s plays %s %s in line %d", tr.Owner, name, face, tr.ToLane)
		if card.IsFaceUp {
			r.middleText(card, tr.Owner, tr.ToLane, state.OriginPlay, cards.TriggerPlay)
		}
		ev := rules.NewEvent(r.S, rules.EventAfterPlay, tr.Owner)
		ev.CardID = card.ID
		ev.Lane = tr.ToLane
		r.Raise(ev)
	}
	r.uncovers(before, card.ID)
	r.Flush()
}

// Draw moves cards from the top of a player's deck to their hand.
func (r *Run) Draw(pe state.PendingEffect, p state.Player, n int) int {
	if n <= 0 {
		return 0
	}
	side := r.S.Side(p)
	anim := state.NewAnimation(state.AnimationDraw, p)
	for i := 0; i < n; i++ {
		card, ok, reshuffled := r.S.TakeTop(p)
		if reshuffled {
			r.Logf(p, pe.SourceName, "%s shuffles their trash into their deck", p)
			r.Raise(rules.NewEvent(r.S, rules.EventAfterShuffle, p))
		}
		if !ok {
			break
		}
		played := r.S.MintCard(card, false)
		side.Hand = append(side.Hand, played)
		anim.CardIDs = append(anim.CardIDs, played.ID)
	}
	drawn := len(anim.CardIDs)
	if drawn == 0 {
		r.Logf(p, pe.SourceName, "%s has no cards to draw", p)
		return 0
	}
	r.animate(anim)
	r.Logf(p, pe.SourceName, "%s draws %d card%s", p, drawn, plural(drawn))
	ev := rules.NewEvent(r.S, rules.EventAfterDraw, p)
	ev.Count = drawn
	r.Raise(ev)
	return drawn
}

// Discard moves cards from a player's hand to their trash.
func (r *Run) Discard(pe *state.PendingEffect, p state.Player, ids []string) int {
	side := r.S.Side(p)
	var discarded []string
	for _, id := range ids {
		idx := side.HandIndex(id)
		if idx < 0 {
			continue
		}
		card := side.Hand[idx]
		anim := state.NewAnimation(state.AnimationDiscard, p)
		anim.CardID = id
		anim.HandIndex = idx
		r.animate(anim)
		side.Hand = append(side.Hand[:idx:idx], side.Hand[idx+1:]...)
		side.Discard = append(side.Discard, card.Base())
		discarded = append(discarded, card.Name())
	}
	if len(discarded) == 0 {
		return 0
	}
	pe.Chain.DiscardedCount += len(discarded)
	r.Logf(p, pe.SourceName, "%s discards %s", p, strings.Join(discarded, ", "))
	ev := rules.NewEvent(r.S, rules.EventAfterDiscard, p)
	ev.Count = len(discarded)
	r.Raise(ev)
	return len(discarded)
}

// Give moves a card from a player's hand to their opponent's hand.
func (r *Run) Give(pe state.PendingEffect, p state.Player, cardID string) bool {
	side := r.S.Side(p)
	idx := side.HandIndex(cardID)
	if idx < 0 {
		return false
	}
	card := side.Hand[idx]
	anim := state.NewAnimation(state.AnimationGive, p)
	anim.CardID = cardID
	anim.HandIndex = idx
	r.animate(anim)
	side.Hand = append(side.Hand[:idx:idx], side.Hand[idx+1:]...)
	other := r.S.Side(state.Opponent(p))
	other.Hand = append(other.Hand, card)
	r.Logf(p, pe.SourceName, "%s gives a card to %s", p, state.Opponent(p))
	return true
}

// Refresh draws up to the hand size. It reports whether any card was drawn.
func (r *Run) Refresh(pe state.PendingEffect, p state.Player) bool {
	missing := r.in.handSize - len(r.S.Side(p).Hand)
	if missing <= 0 {
		r.Logf(p, pe.SourceName, "%s already holds %d cards", p, len(r.S.Side(p).Hand))
		return false
	}
	r.Logf(p, pe.SourceName, "%s refreshes", p)
	drawn := r.Draw(pe, p, missing)
	ev := rules.NewEvent(r.S, rules.EventAfterRefresh, p)
	ev.Count = drawn
	r.Raise(ev)
	return drawn > 0
}

// ShuffleTrash shuffles a player's trash into their deck.
func (r *Run) ShuffleTrash(pe state.PendingEffect, p state.Player) bool {
	side := r.S.Side(p)
	if len(side.Discard) == 0 {
		r.Logf(p, pe.SourceName, "%s has no cards in their trash", p)
		return false
	}
	side.Deck = append(side.Deck, side.Discard...)
	side.Discard = nil
	r.S.Shuffle(side.Deck)
	r.Logf(p, pe.SourceName, "%s shuffles their trash into their deck", p)
	r.Raise(rules.NewEvent(r.S, rules.EventAfterShuffle, p))
	return true
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
