// Package stat 实现实验评估需要的统计原语：Welch t 检验、
// Student-t 双侧 p 值（大自由度用正态近似，否则用不完全 Beta 函数近似）、
// 以及均值差的 95% 置信区间。
//
// 说明：p 值的不完全 Beta 近似与标准统计库不保证逐位一致，
// 精度验证见 welch_test.go 中对参考值的容差断言。
package stat

import "math"

// Mean 返回均值；空切片返回 0。
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Variance 返回样本方差（n-1 分母）；n<2 时返回 0。
func Variance(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(n-1)
}

// WelchResult 是一次 Welch t 检验的结果。
type WelchResult struct {
	T        float64 // t 统计量（b 均值 - a 均值的方向）
	DF       float64 // Welch–Satterthwaite 自由度
	MeanA    float64
	MeanB    float64
	StdErr   float64 // 均值差的标准误
	PValue   float64 // 双侧 p 值
	CILow    float64 // 均值差 95% CI 下界
	CIHigh   float64 // 均值差 95% CI 上界
}

// Welch 对两组观测做不等方差双样本 t 检验（b 相对 a）。
// 任一组样本数 <2、或两组方差同时为 0 时返回 ok=false：
// 这类比较应被整体抑制，而不是产出 NaN。
func Welch(a, b []float64) (WelchResult, bool) {
	na, nb := float64(len(a)), float64(len(b))
	if na < 2 || nb < 2 {
		return WelchResult{}, false
	}
	va, vb := Variance(a), Variance(b)
	if va == 0 && vb == 0 {
		return WelchResult{}, false
	}

	ma, mb := Mean(a), Mean(b)
	sa, sb := va/na, vb/nb
	se := math.Sqrt(sa + sb)
	t := (mb - ma) / se

	// Welch–Satterthwaite 自由度
	df := (sa + sb) * (sa + sb) / (sa*sa/(na-1) + sb*sb/(nb-1))

	p := PValue(t, df)
	tc := TCrit95(df)
	diff := mb - ma

	return WelchResult{
		T:      t,
		DF:     df,
		MeanA:  ma,
		MeanB:  mb,
		StdErr: se,
		PValue: p,
		CILow:  diff - tc*se,
		CIHigh: diff + tc*se,
	}, true
}

// PValue 返回 Student-t 分布下 |T| >= |t| 的双侧概率。
// df > 100 时用正态近似，否则用正则化不完全 Beta 函数：
// p = I_{df/(df+t^2)}(df/2, 1/2)。
func PValue(t, df float64) float64 {
	if df <= 0 {
		return 1
	}
	at := math.Abs(t)
	if df > 100 {
		// 正态近似：2*(1-Phi(|t|))
		return 2 * 0.5 * math.Erfc(at/math.Sqrt2)
	}
	x := df / (df + at*at)
	p := regIncBeta(df/2, 0.5, x)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// TCrit95 返回双侧 95% 的 t 临界值（近邻查表，大自由度回落到 1.96）。
func TCrit95(df float64) float64 {
	table := []struct {
		df float64
		t  float64
	}{
		{2, 4.303}, {3, 3.182}, {4, 2.776}, {5, 2.571},
		{6, 2.447}, {7, 2.365}, {8, 2.306}, {9, 2.262},
		{10, 2.228}, {12, 2.179}, {15, 2.131}, {20, 2.086},
		{25, 2.060}, {30, 2.042}, {40, 2.021}, {60, 2.000},
		{80, 1.990}, {100, 1.984},
	}
	if df <= table[0].df {
		return table[0].t
	}
	for i := len(table) - 1; i >= 0; i-- {
		if df >= table[i].df {
			return table[i].t
		}
	}
	return 1.96
}

// regIncBeta 计算正则化不完全 Beta 函数 I_x(a, b)，连分式展开。
func regIncBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	lg1, _ := math.Lgamma(a + b)
	lg2, _ := math.Lgamma(a)
	lg3, _ := math.Lgamma(b)
	front := math.Exp(lg1 - lg2 - lg3 + a*math.Log(x) + b*math.Log(1-x))

	// 对称选择收敛更快的一侧；front 对 (a,b,x)->(b,a,1-x) 对称，
	// 补侧直接展开，x 恰落在分界点时不会来回递归
	if x < (a+1)/(a+b+2) {
		return front * betacf(a, b, x) / a
	}
	return 1 - front*betacf(b, a, 1-x)/b
}

// betacf 是不完全 Beta 的 Lentz 连分式。
func betacf(a, b, x float64) float64 {
	const (
		maxIter = 200
		eps     = 3e-14
		fpmin   = 1e-300
	)
	qab := a + b
	qap := a + 1
	qam := a - 1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < fpmin {
		d = fpmin
	}
	d = 1 / d
	h := d
	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2 * fm
		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		h *= d * c
		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < eps {
			break
		}
	}
	return h
}
