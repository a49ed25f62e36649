// Command threshold_eval sweeps match thresholds over a labeled set of
// embedding pairs and reports false accept / false reject rates, so the
// production threshold can be re-checked whenever the extraction model
// changes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/noah-isme/face-attendance-api/internal/facematch"
)

type pair struct {
	Label      string    `json:"label"`
	SamePerson bool      `json:"same_person"`
	Stored     []float64 `json:"stored"`
	Probe      []float64 `json:"probe"`
}

type dataset struct {
	Pairs []pair `json:"pairs"`
}

type bucket struct {
	Threshold    float64
	FalseAccepts int
	FalseRejects int
}

func main() {
	var (
		pairsPath string
		step      float64
		maxFAR    float64
	)

	flag.StringVar(&pairsPath, "pairs", filepath.Join("scripts", "threshold_eval", "pairs.json"), "Path to JSON embedding pairs file")
	flag.Float64Var(&step, "step", 0.05, "Threshold sweep step size")
	flag.Float64Var(&maxFAR, "max-far", 0.01, "Maximum tolerated false accept rate at the production threshold")
	flag.Parse()

	pairs, err := loadPairs(pairsPath)
	if err != nil {
		log.Fatalf("failed to load pairs: %v", err)
	}

	distances, sameCount, diffCount, skipped := computeDistances(pairs)
	buckets := sweep(distances, step)
	printReport(buckets, sameCount, diffCount, skipped)

	productionFAR := rateAt(distances, facematch.Threshold, false, diffCount)
	productionFRR := rateAt(distances, facematch.Threshold, true, sameCount)
	fmt.Printf("Production threshold %.2f: FAR=%.4f FRR=%.4f\n", facematch.Threshold, productionFAR, productionFRR)
	if productionFAR > maxFAR {
		fmt.Printf("False accept rate %.4f exceeds the %.4f limit\n", productionFAR, maxFAR)
		os.Exit(1)
	}
}

func loadPairs(path string) ([]pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ds dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, err
	}
	if len(ds.Pairs) == 0 {
		return nil, fmt.Errorf("no pairs defined in %s", path)
	}
	return ds.Pairs, nil
}

type labeledDistance struct {
	samePerson bool
	distance   float64
}

func computeDistances(pairs []pair) (distances []labeledDistance, sameCount, diffCount, skipped int) {
	for _, p := range pairs {
		_, distance, err := facematch.Compare(p.Stored, p.Probe)
		if err != nil {
			log.Printf("skipping pair %q: %v", p.Label, err)
			skipped++
			continue
		}
		distances = append(distances, labeledDistance{samePerson: p.SamePerson, distance: distance})
		if p.SamePerson {
			sameCount++
		} else {
			diffCount++
		}
	}
	return distances, sameCount, diffCount, skipped
}

func sweep(distances []labeledDistance, step float64) []bucket {
	var buckets []bucket
	for threshold := step; threshold < 1.0+step/2; threshold += step {
		b := bucket{Threshold: threshold}
		for _, d := range distances {
			accepted := d.distance < threshold
			if accepted && !d.samePerson {
				b.FalseAccepts++
			}
			if !accepted && d.samePerson {
				b.FalseRejects++
			}
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// rateAt returns the false accept rate (samePerson=false) or false reject
// rate (samePerson=true) at the given threshold.
func rateAt(distances []labeledDistance, threshold float64, samePerson bool, population int) float64 {
	if population == 0 {
		return 0
	}
	var errors int
	for _, d := range distances {
		if d.samePerson != samePerson {
			continue
		}
		accepted := d.distance < threshold
		if samePerson && !accepted {
			errors++
		}
		if !samePerson && accepted {
			errors++
		}
	}
	return float64(errors) / float64(population)
}

func printReport(buckets []bucket, sameCount, diffCount, skipped int) {
	fmt.Println("Threshold Sweep Report")
	fmt.Println("======================")
	fmt.Printf("Genuine pairs: %d | Impostor pairs: %d | Skipped: %d\n", sameCount, diffCount, skipped)
	for _, b := range buckets {
		var far, frr float64
		if diffCount > 0 {
			far = float64(b.FalseAccepts) / float64(diffCount)
		}
		if sameCount > 0 {
			frr = float64(b.FalseRejects) / float64(sameCount)
		}
		marker := " "
		if b.Threshold <= facematch.Threshold && b.Threshold+1e-9 > facematch.Threshold {
			marker = "*"
		}
		fmt.Printf("%s %.2f  FAR=%.4f (%d)  FRR=%.4f (%d)\n", marker, b.Threshold, far, b.FalseAccepts, frr, b.FalseRejects)
	}
}
