/*
	Timelinize
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package location

import "context"

// RecordSource is a type that can get the next location record.
type RecordSource interface {
	// Next returns the next record. When there are no more
	// records, it returns (nil, nil).
	//
	// Implementations must honor context cancellation.
	Next(ctx context.Context) (*Record, error)
}

// ReadAll drains src and returns all of its records in the order
// they were read.
func ReadAll(ctx context.Context, src RecordSource) ([]Record, error) {
	var records []Record
	for {
		rec, err := src.Next(ctx)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return records, nil
		}
		records = append(records, *rec)
	}
}
