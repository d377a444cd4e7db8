package services

import (
	"time"

	"desmoines-weekly-events/internal/models"
)

const weeklyNewsletter = `### LIVE MUSIC

**The Nadas**
* Date: Friday, June 14
* Time: 8:00 PM
* Venue: Wooly's
* Tickets: $25
* Ticket Link: [Tickets](https://woolys.com/nadas)
* Description: Iowa's favorite alt-country band returns home.

**Des Moines Symphony: Yankee Doodle Pops**
* Date: Thursday, July 4
* Time: 7:00 PM
* Venue: Iowa State Capitol
* Tickets: Free
* Description: Annual Independence Day concert with fireworks.

### FESTIVALS & EVENTS

**Des Moines Arts Festival**
* Date: June 14-16
* Time: 10 AM - 10 PM
* Venue: Western Gateway Park
* Admission: Free
* Description: One of the top-ranked arts festivals in the country.

### PLANNING TIPS

* **Parking**: Downtown parking is free on weekends.
`

const sparseNewsletter = `### LIVE MUSIC

**Someone**
* Tickets: $10
`

func refreshWeek() models.WeekRange {
	return models.CurrentWeek(time.Date(2024, time.June, 12, 9, 0, 0, 0, time.UTC))
}
