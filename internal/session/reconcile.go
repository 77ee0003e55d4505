package session

import (
	"tank-duel/internal/game"
	"tank-duel/internal/protocol"
)

// ApplyPatch reconciles a patch from the opponent onto its replica.
//
// Order matters:
//  1. continuous fields (keys, position, heading, invincibility)
//  2. one-shot commands: respawn, die, takeDamage, shoot
//  3. health, the alive flag, then deaths, so the sender's values win
//
// Absent fields keep their previous value. local is the only tank that can
// damage the replica, so it is credited with any kill the patch reveals.
func ApplyPatch(replica, local *game.Tank, p *protocol.StatePatch, damage int) {
	if p == nil {
		return
	}

	// 1. Continuous state
	replica.Intents = p.Key.Merge(replica.Intents)
	if p.X != nil {
		replica.Position.X = *p.X
	}
	if p.Y != nil {
		replica.Position.Y = *p.Y
	}
	if p.Direction != nil {
		replica.Heading = *p.Direction
	}
	if p.IsInvincible != nil {
		replica.SetInvincible(*p.IsInvincible)
	}

	// 2. Commands
	if p.Respawn {
		replica.Respawn(replica.Position, replica.Heading)
	}
	if p.Die {
		replica.Die(local)
	}
	if p.TakeDamage {
		replica.TakeDamage(damage, local)
	}
	if p.Shoot {
		replica.Launch()
	}

	// 3. Counters
	if p.Health != nil {
		h := *p.Health
		if h > replica.MaxHealth {
			h = replica.MaxHealth
		}
		replica.Health = h
		if h == 0 {
			replica.Die(local)
		}
	}
	if p.IsAlive != nil {
		if *p.IsAlive {
			replica.Revive()
		} else {
			replica.Die(nil)
		}
	}
	// Deaths last: Die above counts locally, the sender's counter wins
	if p.Deaths != nil {
		replica.Deaths = *p.Deaths
	}
	// The respawn command grants fresh protection; an explicit flag still wins
	if p.IsInvincible != nil && p.Respawn {
		replica.SetInvincible(*p.IsInvincible)
	}
}
